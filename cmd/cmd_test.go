package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"reward-advisor/service"
)

func TestMaskAPIKey(t *testing.T) {
	tests := map[string]string{
		"short":               "****",
		"sk-abcdefghijklmnop": "sk-a...mnop",
	}
	for in, want := range tests {
		if got := maskAPIKey(in); got != want {
			t.Errorf("maskAPIKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestReadInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.json")
	body := `{"debts": [{"name": "Visa", "balance": 500, "interestRate": 0.24, "minimumPayment": 25}], "extraMonthlyPayment": 100, "strategy": "snowball"}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	old := flagInput
	flagInput = path
	t.Cleanup(func() { flagInput = old })

	var req service.DebtRequest
	if err := readInput(&req); err != nil {
		t.Fatalf("readInput() error = %v", err)
	}
	if len(req.Debts) != 1 || req.Debts[0].Name != "Visa" || req.ExtraMonthlyPayment != 100 || req.Strategy != "snowball" {
		t.Errorf("unexpected request %+v", req)
	}

	flagInput = filepath.Join(t.TempDir(), "missing.json")
	if err := readInput(&req); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDecodeInput_QuestionSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	body := `{"debts": [{"name": "Visa", "balance": 500, "interestRate": 0.24, "minimumPayment": 25}], "windowDays": 30}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	var req service.QuestionRequest
	if err := decodeInput(path, &req); err != nil {
		t.Fatalf("decodeInput() error = %v", err)
	}
	if len(req.Debts) != 1 || req.WindowDays != 30 || req.Question != "" {
		t.Errorf("unexpected request %+v", req)
	}
}

package consensus

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"ChainSentry/internal/risk"
)

func TestIntentBuilderMappingTable(t *testing.T) {
	builder := NewIntentBuilder(IntentModeRevokeApproval)
	cases := []struct {
		name    string
		verdict Verdict
		want    Action
	}{
		{"allow", Verdict{Decision: DecisionAllow, Severity: risk.SeverityLow}, ActionExecuteTx},
		{"block", Verdict{Decision: DecisionBlock, Severity: risk.SeverityCritical}, ActionBlockTx},
		{"review-low", Verdict{Decision: DecisionReviewRequired, Severity: risk.SeverityMedium}, ActionNoop},
		{"review-high", Verdict{Decision: DecisionReviewRequired, Severity: risk.SeverityHigh}, ActionRevokeApproval},
		{"unknown", Verdict{Decision: Decision("GARBAGE")}, ActionNoop},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			intent := builder.Build(tc.verdict, nil)
			if intent.Action != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, intent.Action)
			}
		})
	}
}

func TestIntentBuilderPrivateRelayMode(t *testing.T) {
	builder := NewIntentBuilder(IntentModePrivateRelay)

	intent := builder.Build(Verdict{Decision: DecisionReviewRequired, Severity: risk.SeverityMedium}, nil)
	if intent.Action != ActionUsePrivateRelay {
		t.Fatalf("relay mode should route review to private relay, got %s", intent.Action)
	}
}

func TestIntentBuilderRejectsUnknownMode(t *testing.T) {
	builder := NewIntentBuilder(IntentMode("bogus"))
	if builder.Mode() != IntentModeRevokeApproval {
		t.Fatalf("unknown mode should fall back to revoke approval, got %s", builder.Mode())
	}
}

func TestIntentEchoesTransaction(t *testing.T) {
	builder := NewIntentBuilder(IntentModeRevokeApproval)
	tx := &risk.InputTx{
		ChainID: big.NewInt(1),
		To:      common.HexToAddress("0x00000000000000000000000000000000000000aa"),
		Value:   big.NewInt(1000),
		Data:    []byte{0x01, 0x02},
	}
	verdict := Verdict{RunID: "run-9", Decision: DecisionAllow, Severity: risk.SeverityLow, Score: 12}

	intent := builder.Build(verdict, tx)
	if intent.RunID != "run-9" {
		t.Fatalf("intent must reference its run, got %s", intent.RunID)
	}
	if intent.Target != tx.To || intent.Value.Cmp(tx.Value) != 0 || intent.ChainID.Cmp(tx.ChainID) != 0 {
		t.Fatalf("intent must echo transaction fields: %+v", intent)
	}
	if intent.ID == "" {
		t.Fatalf("intent must carry an id")
	}
	if intent.Score != 12 || intent.Severity != risk.SeverityLow {
		t.Fatalf("intent must echo decision fields: %+v", intent)
	}
}

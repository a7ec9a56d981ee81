package conditions

import (
	"testing"

	"github.com/cadencehq/cadence/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestEvaluate_EmptyChain(t *testing.T) {
	assert.True(t, Evaluate(nil, map[string]any{"status": "open"}))
	assert.True(t, Evaluate([]models.Condition{}, nil))
}

func TestEvaluate_SingleCondition(t *testing.T) {
	tests := []struct {
		name    string
		cond    models.Condition
		payload map[string]any
		want    bool
	}{
		{
			name:    "equals matches",
			cond:    models.Condition{Field: "status", Operator: models.OperatorEquals, Value: "open"},
			payload: map[string]any{"status": "open"},
			want:    true,
		},
		{
			name:    "equals mismatch",
			cond:    models.Condition{Field: "status", Operator: models.OperatorEquals, Value: "open"},
			payload: map[string]any{"status": "closed"},
			want:    false,
		},
		{
			name:    "numeric equals across types",
			cond:    models.Condition{Field: "score", Operator: models.OperatorEquals, Value: "42"},
			payload: map[string]any{"score": float64(42)},
			want:    true,
		},
		{
			name:    "not_equals",
			cond:    models.Condition{Field: "status", Operator: models.OperatorNotEquals, Value: "open"},
			payload: map[string]any{"status": "closed"},
			want:    true,
		},
		{
			name:    "contains substring",
			cond:    models.Condition{Field: "email", Operator: models.OperatorContains, Value: "@example."},
			payload: map[string]any{"email": "jane@example.com"},
			want:    true,
		},
		{
			name:    "greater_than numeric",
			cond:    models.Condition{Field: "score", Operator: models.OperatorGreaterThan, Value: 50},
			payload: map[string]any{"score": 75},
			want:    true,
		},
		{
			name:    "greater_than non-numeric is false, never raises",
			cond:    models.Condition{Field: "score", Operator: models.OperatorGreaterThan, Value: 50},
			payload: map[string]any{"score": "not a number"},
			want:    false,
		},
		{
			name:    "less_than",
			cond:    models.Condition{Field: "score", Operator: models.OperatorLessThan, Value: "10"},
			payload: map[string]any{"score": 3},
			want:    true,
		},
		{
			name:    "missing field is false",
			cond:    models.Condition{Field: "missing", Operator: models.OperatorEquals, Value: "x"},
			payload: map[string]any{"status": "open"},
			want:    false,
		},
		{
			name:    "missing field passes not_equals",
			cond:    models.Condition{Field: "missing", Operator: models.OperatorNotEquals, Value: "x"},
			payload: map[string]any{"status": "open"},
			want:    true,
		},
		{
			name:    "dotted path into nested payload",
			cond:    models.Condition{Field: "contact.source", Operator: models.OperatorEquals, Value: "webhook"},
			payload: map[string]any{"contact": map[string]any{"source": "webhook"}},
			want:    true,
		},
		{
			name:    "dotted path through non-map is false",
			cond:    models.Condition{Field: "contact.source", Operator: models.OperatorEquals, Value: "webhook"},
			payload: map[string]any{"contact": "plain string"},
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate([]models.Condition{tt.cond}, tt.payload)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluate_AndChain(t *testing.T) {
	conds := []models.Condition{
		{Field: "status", Operator: models.OperatorEquals, Value: "open"},
		{Field: "priority", Operator: models.OperatorEquals, Value: "high", Logic: models.LogicAnd},
	}

	assert.True(t, Evaluate(conds, map[string]any{"status": "open", "priority": "high"}))
	assert.False(t, Evaluate(conds, map[string]any{"status": "open", "priority": "low"}))
}

func TestEvaluate_OrChain(t *testing.T) {
	conds := []models.Condition{
		{Field: "source", Operator: models.OperatorEquals, Value: "webhook"},
		{Field: "source", Operator: models.OperatorEquals, Value: "import", Logic: models.LogicOr},
	}

	assert.True(t, Evaluate(conds, map[string]any{"source": "import"}))
	assert.False(t, Evaluate(conds, map[string]any{"source": "manual"}))
}

func TestEvaluate_MixedLogicFoldsLeftToRight(t *testing.T) {
	// (a AND b) OR c: the OR on the third condition combines with the
	// accumulated result of the two before it.
	conds := []models.Condition{
		{Field: "a", Operator: models.OperatorEquals, Value: "1"},
		{Field: "b", Operator: models.OperatorEquals, Value: "1", Logic: models.LogicAnd},
		{Field: "c", Operator: models.OperatorEquals, Value: "1", Logic: models.LogicOr},
	}

	payload := map[string]any{"a": "1", "b": "0", "c": "1"}
	assert.True(t, Evaluate(conds, payload))

	payload = map[string]any{"a": "1", "b": "0", "c": "0"}
	assert.False(t, Evaluate(conds, payload))
}

func TestEvaluate_NoShortCircuit(t *testing.T) {
	// A malformed trailing condition still participates; the chain result
	// is unaffected when combined with OR against an already-true fold.
	conds := []models.Condition{
		{Field: "status", Operator: models.OperatorEquals, Value: "open"},
		{Field: "", Operator: models.OperatorGreaterThan, Value: nil, Logic: models.LogicOr},
	}

	assert.True(t, Evaluate(conds, map[string]any{"status": "open"}))
}

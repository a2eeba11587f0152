package datasource

import "testing"

func TestFlowRuleConverterParsesEnvelope(t *testing.T) {
	raw := []byte(`{"Version":"1","Data":[{"resource":"res-a","limitApp":"default","grade":1,"count":20,"strategy":0,"controlBehavior":0}]}`)
	rules, err := FlowRuleConverter.Convert(raw)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if len(rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(rules))
	}
	if rules[0].Resource != "res-a" || rules[0].Count != 20 {
		t.Errorf("unexpected rule: %+v", rules[0])
	}
}

func TestSystemRuleConverterParsesEnvelope(t *testing.T) {
	raw := []byte(`{"Version":"1","Data":[{"qps":15}]}`)
	rules, err := SystemRuleConverter.Convert(raw)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if len(rules) != 1 || rules[0].TriggerCount != 15 {
		t.Fatalf("unexpected rules: %+v", rules)
	}
}

func TestCircuitBreakerRuleConverterDropsUnknownStrategies(t *testing.T) {
	raw := []byte(`{"Version":"1","Data":[{"resource":"a","grade":1,"count":0.5,"timeWindow":10},{"resource":"b","grade":77,"timeWindow":10}]}`)
	rules, err := CircuitBreakerRuleConverter.Convert(raw)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if len(rules) != 1 {
		t.Fatalf("expected the unrecognized-strategy rule to be dropped, got %d rules", len(rules))
	}
	if rules[0].Resource != "a" {
		t.Errorf("unexpected surviving rule: %+v", rules[0])
	}
}

func TestHotspotRuleConverterParsesEnvelope(t *testing.T) {
	raw := []byte(`{"Version":"1","Data":[{"resource":"res-h","paramIdx":0,"grade":1,"count":30,"controlBehavior":2,"maxQueueingTimeMs":200}]}`)
	rules, err := HotspotRuleConverter.Convert(raw)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if len(rules) != 1 || rules[0].Resource != "res-h" || rules[0].Count != 30 {
		t.Fatalf("unexpected rules: %+v", rules)
	}
}

func TestConverterFuncAdaptsPlainFunction(t *testing.T) {
	var c Converter[int] = ConverterFunc[int](func(raw []byte) ([]int, error) {
		return []int{len(raw)}, nil
	})
	out, err := c.Convert([]byte("abc"))
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if len(out) != 1 || out[0] != 3 {
		t.Fatalf("unexpected result: %+v", out)
	}
}

package datasource

import (
	"encoding/json"

	"github.com/nacos-group/nacos-sdk-go/clients"
	"github.com/nacos-group/nacos-sdk-go/clients/config_client"
	"github.com/nacos-group/nacos-sdk-go/common/constant"
	"github.com/nacos-group/nacos-sdk-go/vo"
	"github.com/pkg/errors"

	"github.com/flowgate-io/flowcore/circuitbreaker"
	"github.com/flowgate-io/flowcore/flow"
	"github.com/flowgate-io/flowcore/flowlog"
	"github.com/flowgate-io/flowcore/hotspot"
	"github.com/flowgate-io/flowcore/system"
)

// Config is what RuleSource needs to reach a nacos config center, mirroring
// the teacher's constant.ClientConfig fields it fed straight through.
type Config struct {
	Endpoint         string
	NamespaceId      string
	GroupId          string
	TimeoutMs        uint64
	ListenIntervalMs uint64
}

// RuleSource is a live nacos config-client subscription: Listen registers
// one dataId's OnChange push against a Converter plus the Manager method
// that applies the converted batch.
type RuleSource struct {
	cfg    Config
	client config_client.IConfigClient
}

func NewRuleSource(cfg Config) (*RuleSource, error) {
	clientConfig := constant.ClientConfig{
		TimeoutMs:      cfg.TimeoutMs,
		ListenInterval: cfg.ListenIntervalMs,
		NamespaceId:    cfg.NamespaceId,
		Endpoint:       cfg.Endpoint,
	}
	client, err := clients.CreateConfigClient(map[string]interface{}{
		"clientConfig": clientConfig,
	})
	if err != nil {
		return nil, errors.Wrap(err, "datasource: creating nacos config client")
	}
	return &RuleSource{cfg: cfg, client: client}, nil
}

// Listen subscribes to dataId: every push is parsed by conv and handed to
// apply (normally a Manager's LoadRules). Parse and apply failures are
// logged and swallowed — a bad push must never crash the watching
// process (SPEC_FULL.md §7 "Resource degradation in plumbing").
func Listen[T any](rs *RuleSource, dataId string, conv Converter[T], apply func([]T) error) error {
	err := rs.client.ListenConfig(vo.ConfigParam{
		Group:  rs.cfg.GroupId,
		DataId: dataId,
		OnChange: func(namespace, group, dataId, data string) {
			rules, err := conv.Convert([]byte(data))
			if err != nil {
				flowlog.Errorf("datasource: parsing payload for dataId=%s: %v", dataId, err)
				return
			}
			if err := apply(rules); err != nil {
				flowlog.Errorf("datasource: loading rules for dataId=%s: %v", dataId, err)
			}
		},
	})
	if err != nil {
		return errors.Wrapf(err, "datasource: listening on dataId=%s", dataId)
	}
	return nil
}

// envelope is the "{Version, Data: [...]}" shape every legacy rule push
// arrives wrapped in.
type envelope[L any] struct {
	Version string
	Data    []*L
}

func parseEnvelope[L any](raw []byte) ([]*L, error) {
	var env envelope[L]
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, errors.Wrap(err, "datasource: parsing envelope")
	}
	return env.Data, nil
}

// FlowRuleConverter parses a pushed FlowRule envelope.
var FlowRuleConverter = ConverterFunc[*flow.Rule](func(raw []byte) ([]*flow.Rule, error) {
	legacy, err := parseEnvelope[LegacyFlowRule](raw)
	if err != nil {
		return nil, err
	}
	out := make([]*flow.Rule, 0, len(legacy))
	for _, l := range legacy {
		out = append(out, l.ToRule())
	}
	return out, nil
})

// SystemRuleConverter parses a pushed SystemRule envelope.
var SystemRuleConverter = ConverterFunc[*system.Rule](func(raw []byte) ([]*system.Rule, error) {
	legacy, err := parseEnvelope[LegacySystemRule](raw)
	if err != nil {
		return nil, err
	}
	out := make([]*system.Rule, 0, len(legacy))
	for _, l := range legacy {
		out = append(out, l.ToRule())
	}
	return out, nil
})

// CircuitBreakerRuleConverter parses a pushed DegradeRule envelope,
// dropping entries whose legacy Strategy has no translation.
var CircuitBreakerRuleConverter = ConverterFunc[*circuitbreaker.Rule](func(raw []byte) ([]*circuitbreaker.Rule, error) {
	legacy, err := parseEnvelope[LegacyDegradeRule](raw)
	if err != nil {
		return nil, err
	}
	out := make([]*circuitbreaker.Rule, 0, len(legacy))
	for _, l := range legacy {
		if r := l.ToRule(); r != nil {
			out = append(out, r)
		}
	}
	return out, nil
})

// HotspotRuleConverter parses a pushed ParamFlowRule envelope.
var HotspotRuleConverter = ConverterFunc[*hotspot.Rule](func(raw []byte) ([]*hotspot.Rule, error) {
	legacy, err := parseEnvelope[LegacyParamFlowRule](raw)
	if err != nil {
		return nil, err
	}
	out := make([]*hotspot.Rule, 0, len(legacy))
	for _, l := range legacy {
		out = append(out, l.ToRule())
	}
	return out, nil
})

// Package datasource feeds flowcore's rule managers from an external
// config-center push, the way the teacher's ACM/nacos integration does
// (SPEC_FULL.md §4.13/§6 "rule feed format (Converter<Raw, []Rule> +
// refresh primitive)"): a Converter turns one wire payload into a batch of
// this module's own rule types, and RuleSource wires nacos-sdk-go's
// config-change push into that conversion plus a LoadRules call.
package datasource

// Converter turns one raw config-center payload into a batch of rules of
// type T. Implementations only parse and translate; LoadRules validation
// and whole-set-rejection still happens in the target Manager.
type Converter[T any] interface {
	Convert(raw []byte) ([]T, error)
}

// ConverterFunc adapts a plain function to Converter.
type ConverterFunc[T any] func(raw []byte) ([]T, error)

func (f ConverterFunc[T]) Convert(raw []byte) ([]T, error) { return f(raw) }

package telemetry

import "go.opentelemetry.io/otel/attribute"

type attributeKV struct {
	key string
	val string
}

func toAttributes(kvs []attributeKV) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(kvs))
	for _, kv := range kvs {
		out = append(out, attribute.String(kv.key, kv.val))
	}
	return out
}

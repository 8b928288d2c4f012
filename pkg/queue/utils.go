package queue

import (
	"fmt"
	"strings"
)

// qualifiedStructName derives a stable task name from a payload type,
// e.g. "webhook.PaymentSucceededTask". Pointer indirection is stripped so a
// value and a pointer payload map to the same handler.
func qualifiedStructName(v any) string {
	name := strings.TrimLeft(fmt.Sprintf("%T", v), "*")
	return name
}

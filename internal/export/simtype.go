package export

import (
	"strings"

	"github.com/wbpricebot/wbwatch/internal/model"
)

// SimType describes the SIM configuration of a search result.
// The first characteristic whose name mentions "sim" (or "сим") wins;
// without one the product name is inspected. "-" means unknown.
func SimType(p model.RawProduct) string {
	for _, c := range p.Characteristics() {
		ch, ok := c.(map[string]any)
		if !ok {
			continue
		}
		name := strings.ToLower(model.AsString(ch["name"]))
		if !strings.Contains(name, "sim") && !strings.Contains(name, "сим") {
			continue
		}
		return firstValue(ch)
	}

	name := strings.ToLower(p.Name())
	switch {
	case strings.Contains(name, "esim") || strings.Contains(name, "e-sim"):
		if strings.Contains(name, "nano") || strings.Contains(name, "sim+") || strings.Contains(name, "+sim") {
			return "Nano-SIM + eSIM"
		}
		return "eSIM"
	case strings.Contains(name, "nano"):
		return "Nano-SIM"
	case strings.Contains(name, "sim"):
		return "SIM"
	}
	return "-"
}

// firstValue reads the first entry of "values" (or "value"), which is
// either a string or an object with a name.
func firstValue(ch map[string]any) string {
	values, ok := ch["values"].([]any)
	if !ok || len(values) == 0 {
		values, ok = ch["value"].([]any)
	}
	if !ok || len(values) == 0 {
		return ""
	}
	switch v := values[0].(type) {
	case string:
		return v
	case map[string]any:
		if s := model.AsString(v["name"]); s != "" {
			return s
		}
		return model.AsString(v["value"])
	}
	return ""
}

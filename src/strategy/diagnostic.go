package strategy

type DiagnosticType string

const (
	DiagnosticText   DiagnosticType = "text"
	DiagnosticNumber DiagnosticType = "number"
	DiagnosticBool   DiagnosticType = "bool"
)

// Diagnostic is one explainability value. Only the field matching Type is set.
type Diagnostic struct {
	Key    string
	Label  string
	Type   DiagnosticType
	Text   string
	Number Value
	Bool   bool
}

func TextDiagnostic(key, label, text string) Diagnostic {
	return Diagnostic{Key: key, Label: labelOr(key, label), Type: DiagnosticText, Text: text}
}

func NumberDiagnostic(key, label string, v Value) Diagnostic {
	return Diagnostic{Key: key, Label: labelOr(key, label), Type: DiagnosticNumber, Number: v}
}

func BoolDiagnostic(key, label string, b bool) Diagnostic {
	return Diagnostic{Key: key, Label: labelOr(key, label), Type: DiagnosticBool, Bool: b}
}

// LogValue renders the diagnostic for structured logs. Undefined numbers log as nil.
func (d Diagnostic) LogValue() interface{} {
	switch d.Type {
	case DiagnosticNumber:
		if !d.Number.OK {
			return nil
		}
		return d.Number.V
	case DiagnosticBool:
		return d.Bool
	default:
		return d.Text
	}
}

func labelOr(key, label string) string {
	if label == "" {
		return key
	}
	return label
}

package agent

import "strings"

// tailTurns returns the last n turns, or all of them when n <= 0.
func tailTurns(history []Turn, n int) []Turn {
	if n <= 0 || len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

// renderHistory flattens turns into a labeled transcript. When withTables is
// set, the result table attached to an assistant turn is appended as JSON
// records so the model can answer follow-ups about data it already returned.
func renderHistory(history []Turn, withTables bool, sampleRows int) string {
	if len(history) == 0 {
		return "(sin historial)"
	}
	var b strings.Builder
	for _, turn := range history {
		switch turn.Role {
		case RoleUser:
			b.WriteString("Usuario: ")
		case RoleAssistant:
			b.WriteString("Asistente: ")
		default:
			b.WriteString(string(turn.Role) + ": ")
		}
		b.WriteString(turn.Content)
		b.WriteByte('\n')
		if withTables && turn.Table != nil {
			if sample, err := turn.Table.SampleJSON(sampleRows); err == nil {
				b.WriteString("Datos devueltos: ")
				b.WriteString(sample)
				b.WriteByte('\n')
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

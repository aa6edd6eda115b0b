package app

import (
	"fmt"
	"strings"

	"marvel-rag/internal/model"
)

const defaultCompareQuestion = "Compara sus atributos y resume el resultado"

const agentPersona = "Eres Marvel Agent, asistente técnico de Clean Marvel Album. " +
	"Usa solo el contexto disponible y, si falta información, dilo de forma breve y clara. No inventes datos."

const emptyAgentContext = "Contexto: (vacío, no hay información en la KB)"

func buildComparePrompt(heroes []model.Document, question string) string {
	lines := make([]string, 0, len(heroes))
	for _, h := range heroes {
		name := h.Title
		if strings.TrimSpace(name) == "" {
			name = "Héroe sin nombre"
		}
		text := h.Text
		if strings.TrimSpace(text) == "" {
			text = "Sin descripción disponible"
		}
		lines = append(lines, fmt.Sprintf("- %s (ID: %s): %s", name, h.ID, text))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Tienes la siguiente información detallada de héroes. Usa esos contextos para responder a la pregunta: %q.\n", question)
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n\nInstrucciones:\n")
	b.WriteString("- Mantén un tono narrativo claro, directo y apto para audio. No utilices tablas, íconos, estrellas ni emojis.\n")
	b.WriteString("- Explica primero las diferencias entre ambos héroes mencionando atributos o capacidades relevantes que aparecen en el contexto.\n")
	b.WriteString("- En un segundo párrafo describe cómo se complementan en combate o misión, usando al menos dos criterios por cada héroe según los datos disponibles.\n")
	b.WriteString("- Apóyate exclusivamente en los contextos proporcionados y no inventes nuevos atributos ni cambies valoraciones.")
	return b.String()
}

func buildAgentPrompt(question string, contexts []model.Context) string {
	contextText := emptyAgentContext
	if len(contexts) > 0 {
		chunks := make([]string, len(contexts))
		for i, c := range contexts {
			chunks[i] = c.Title + "\n" + c.Text
		}
		contextText = "Contexto (extractos KB):\n---\n" + strings.Join(chunks, "\n---\n")
	}
	return fmt.Sprintf("%s\n\n%s\n\nPregunta: %s\n\nResponde de forma técnica y concisa, sin inventar datos fuera del contexto.",
		agentPersona, contextText, question)
}

package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marvel-rag/internal/model"
)

func TestHeroLexical_OneContextPerCandidate(t *testing.T) {
	kb := newMemKB(
		heroDoc("hero-1", "Puede volar con gran fuerza y resistencia"),
		heroDoc("hero-2", "Entrenado en sigilo y espionaje"),
		heroDoc("hero-3", "Velocidad"),
	)
	r := NewHeroLexicalRetriever(kb)

	for _, q := range []string{"", "   ", "fuerza volar", "de la con", "palabra inexistente"} {
		got, err := r.Retrieve(context.Background(), Request{IDs: []string{"hero-1", "hero-2"}, Query: q})
		require.NoError(t, err, q)
		assert.ElementsMatch(t, []string{"hero-1", "hero-2"}, contextIDs(got), q)
	}
}

func TestHeroLexical_BlankQueryKeepsInputOrder(t *testing.T) {
	kb := newMemKB(heroDoc("hero-1", "fuerza"), heroDoc("hero-2", "sigilo"))
	r := NewHeroLexicalRetriever(kb)

	got, err := r.Retrieve(context.Background(), Request{IDs: []string{"hero-2", "hero-1"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"hero-2", "hero-1"}, contextIDs(got))
	for _, c := range got {
		assert.Equal(t, 0.0, c.Score)
	}
}

func TestHeroLexical_DuplicateAndUnknownIDs(t *testing.T) {
	kb := newMemKB(heroDoc("hero-1", "fuerza"), heroDoc("hero-2", "sigilo"))
	r := NewHeroLexicalRetriever(kb)

	got, err := r.Retrieve(context.Background(), Request{IDs: []string{"hero-1", " hero-1 ", "ghost", "hero-2"}, Query: "fuerza"})
	require.NoError(t, err)
	assert.Equal(t, []string{"hero-1", "hero-2"}, contextIDs(got))
}

func TestHeroLexical_StrengthScenario(t *testing.T) {
	kb := newMemKB(
		heroDoc("hero-1", "Puede volar con gran fuerza y resistencia"),
		heroDoc("hero-2", "Entrenado en sigilo y espionaje"),
	)
	r := NewHeroLexicalRetriever(kb)

	got, err := r.Retrieve(context.Background(), Request{IDs: []string{"hero-1", "hero-2"}, Query: "fuerza volar"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "hero-1", got[0].ID)
	assert.Greater(t, got[0].Score, got[1].Score)
	assert.Equal(t, "Puede volar con gran fuerza y resistencia", got[0].Text)
}

func TestHeroLexical_LimitScenario(t *testing.T) {
	kb := newMemKB(
		heroDoc("hero-1", "fuerza"),
		heroDoc("hero-2", "fuerza y velocidad"),
		heroDoc("hero-3", "sigilo"),
	)
	r := NewHeroLexicalRetriever(kb)

	got, err := r.Retrieve(context.Background(), Request{
		IDs:   []string{"hero-1", "hero-2", "hero-3"},
		Query: "fuerza velocidad",
		Limit: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"hero-2", "hero-1"}, contextIDs(got))
}

func TestHeroLexical_StableTies(t *testing.T) {
	kb := newMemKB(
		heroDoc("a", "fuerza"),
		heroDoc("b", "fuerza"),
		heroDoc("c", "velocidad fuerza"),
		heroDoc("d", "fuerza"),
	)
	r := NewHeroLexicalRetriever(kb)

	got, err := r.Retrieve(context.Background(), Request{IDs: []string{"d", "b", "c", "a"}, Query: "fuerza"})
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "b", "a", "c"}, contextIDs(got))
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Score, got[i].Score)
	}
}

func TestKnowledgeLexical_BlankQueryIsEmpty(t *testing.T) {
	kb := newMemKB(model.Document{ID: "section-1", Title: "Arquitectura", Text: "Capas del proyecto"})
	r := NewKnowledgeLexicalRetriever(kb)

	for _, q := range []string{"", "  \t\n", "de la con", "?!"} {
		got, err := r.Retrieve(context.Background(), Request{Query: q})
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got, q)
	}
}

func TestKnowledgeLexical_RanksCorpus(t *testing.T) {
	kb := newMemKB(
		model.Document{ID: "section-1", Title: "Arquitectura", Text: "Capas del proyecto y dominio"},
		model.Document{ID: "section-2", Title: "Despliegue", Text: "Pipeline de despliegue continuo"},
		model.Document{ID: "section-3", Title: "Microservicios", Text: "Servicio RAG y servicio OpenAI, despliegue independiente"},
		model.Document{ID: "section-4", Title: "Pruebas", Text: "PHPUnit y cobertura"},
	)
	r := NewKnowledgeLexicalRetriever(kb)

	got, err := r.Retrieve(context.Background(), Request{Query: "¿Cómo es el despliegue?"})
	require.NoError(t, err)
	assert.Equal(t, []string{"section-2", "section-3"}, contextIDs(got))
	assert.Greater(t, got[0].Score, got[1].Score)
}

func TestKnowledgeLexical_DefaultLimit(t *testing.T) {
	var docs []model.Document
	for _, id := range []string{"s1", "s2", "s3", "s4", "s5"} {
		docs = append(docs, model.Document{ID: id, Title: id, Text: "marvel"})
	}
	r := NewKnowledgeLexicalRetriever(newMemKB(docs...))

	got, err := r.Retrieve(context.Background(), Request{Query: "marvel"})
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2", "s3"}, contextIDs(got))
}

func TestLexical_KnowledgeBaseError(t *testing.T) {
	kb := &memKB{err: errBoom}
	obs := &recordingObserver{}
	r := NewKnowledgeLexicalRetriever(kb, WithObserver(obs))

	_, err := r.Retrieve(context.Background(), Request{Query: "marvel"})
	require.ErrorIs(t, err, errBoom)
	require.Len(t, obs.events, 1)
	assert.Equal(t, OutcomeError, obs.events[0].Outcome)
}

package retrieval

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/assist-platform/internal/ai/mock"
	"github.com/suPer8Hu/assist-platform/internal/knowledge"
)

type memStore struct {
	chunks map[string][]knowledge.Chunk
	faqs   map[string][]knowledge.Faq
}

func (m *memStore) ScanChunks(ctx context.Context, tenantID string) ([]knowledge.Chunk, error) {
	return m.chunks[tenantID], nil
}

func (m *memStore) ScanFaqs(ctx context.Context, tenantID string) ([]knowledge.Faq, error) {
	return m.faqs[tenantID], nil
}

func mustEmbed(t *testing.T, text string) []float32 {
	t.Helper()
	v, err := mock.BagOfWords(text)
	require.NoError(t, err)
	return v
}

func newStore(t *testing.T) *memStore {
	chunk := func(id, text string) knowledge.Chunk {
		return knowledge.Chunk{ID: id, TenantID: "t1", Content: text, Embedding: mustEmbed(t, text)}
	}
	faq := func(id, q, a string) knowledge.Faq {
		return knowledge.Faq{
			ID: id, TenantID: "t1", Question: q, Answer: a,
			QuestionEmbedding:  mustEmbed(t, q),
			CompositeEmbedding: mustEmbed(t, knowledge.FaqComposite(q, a)),
		}
	}
	return &memStore{
		chunks: map[string][]knowledge.Chunk{
			"t1": {
				chunk("c1", "Refunds are prorated to the day of cancellation."),
				chunk("c2", "Our office is open Monday to Friday."),
				chunk("c3", "To cancel your policy send us a written notice."),
			},
			"t2": {chunk("x1", "How do I cancel my policy")},
		},
		faqs: map[string][]knowledge.Faq{
			"t1": {
				faq("f1", "How do I cancel my policy", "Send a written notice."),
				faq("f2", "What are your opening hours", "Monday to Friday, nine to five."),
				faq("f3", "Do you offer roadside assistance", "Yes, on premium plans."),
			},
		},
	}
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 2, 3}, []float32{2, 4, 6}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float32{1, 0}, []float32{-3, 0}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 5}), 1e-9)
	assert.Equal(t, 0.0, Cosine([]float32{0, 0}, []float32{1, 1}))
}

func TestRetrieve_IdenticalFaqQuestionScoresHighest(t *testing.T) {
	r := New(newStore(t), mock.NewEmbedder(), WithFloors(-1, -1))

	res, err := r.Retrieve(context.Background(), "t1", "How do I cancel my policy", Options{TopDocK: 10, TopFaqK: 10})
	require.NoError(t, err)
	require.Len(t, res.Faqs, 3)
	assert.Equal(t, "f1", res.Faqs[0].Faq.ID)
	assert.InDelta(t, 1.0, res.Faqs[0].Score, 1e-6)
	for _, h := range res.Faqs[1:] {
		assert.Less(t, h.Score, res.Faqs[0].Score)
	}
}

func TestRetrieve_FloorsAreEnforcedForAnyK(t *testing.T) {
	store := newStore(t)
	query := "cancel my policy"
	qv := mustEmbed(t, query)

	r := New(store, mock.NewEmbedder(), WithFloors(0.45, 0.6))
	docFloor, faqFloor := r.Floors()

	for k := 1; k <= 5; k++ {
		res, err := r.Retrieve(context.Background(), "t1", query, Options{TopDocK: k, TopFaqK: k})
		require.NoError(t, err)
		assert.LessOrEqual(t, len(res.Docs), k)
		assert.LessOrEqual(t, len(res.Faqs), k)

		for _, h := range res.Docs {
			assert.GreaterOrEqual(t, h.Score, docFloor)
		}
		for _, h := range res.Faqs {
			assert.GreaterOrEqual(t, h.Score, faqFloor)
		}
	}

	// everything below a floor is absent, independently of K
	res, err := r.Retrieve(context.Background(), "t1", query, Options{TopDocK: 100, TopFaqK: 100})
	require.NoError(t, err)
	returned := map[string]bool{}
	for _, h := range res.Docs {
		returned[h.Chunk.ID] = true
	}
	for _, c := range store.chunks["t1"] {
		if Cosine(qv, c.Embedding) < docFloor {
			assert.False(t, returned[c.ID], "chunk %s below floor returned", c.ID)
		} else {
			assert.True(t, returned[c.ID], "chunk %s above floor missing", c.ID)
		}
	}
}

func TestRetrieve_FaqUsesBestOfQuestionAndComposite(t *testing.T) {
	r := New(newStore(t), mock.NewEmbedder(), WithFloors(2, -1))

	query := "Yes, on premium plans."
	res, err := r.Retrieve(context.Background(), "t1", query, Options{TopFaqK: 1})
	require.NoError(t, err)
	assert.Empty(t, res.Docs, "doc floor above 1 admits nothing")
	require.Len(t, res.Faqs, 1)
	assert.Equal(t, "f3", res.Faqs[0].Faq.ID)

	f := res.Faqs[0].Faq
	qv := mustEmbed(t, query)
	want := math.Max(Cosine(qv, f.QuestionEmbedding), Cosine(qv, f.CompositeEmbedding))
	assert.InDelta(t, want, res.Faqs[0].Score, 1e-9)
}

func TestRetrieve_TenantIsolation(t *testing.T) {
	r := New(newStore(t), mock.NewEmbedder(), WithFloors(-1, -1))

	res, err := r.Retrieve(context.Background(), "t2", "How do I cancel my policy", Options{})
	require.NoError(t, err)
	require.Len(t, res.Docs, 1)
	assert.Equal(t, "x1", res.Docs[0].Chunk.ID)
	assert.Empty(t, res.Faqs)
}

func TestRetrieve_EmbedderFailure(t *testing.T) {
	emb := mock.NewEmbedder()
	emb.EmbedFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("timeout")
	}
	r := New(newStore(t), emb)

	_, err := r.Retrieve(context.Background(), "t1", "anything", Options{})
	require.Error(t, err)
}

// Package retrieval scores a query against a tenant's stored chunks and FAQs.
//
// Documents and FAQs are thresholded independently: FAQ answers are curated and
// require a tighter match than loosely related document prose.
package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/suPer8Hu/assist-platform/internal/ai"
	"github.com/suPer8Hu/assist-platform/internal/knowledge"
)

const (
	DefaultDocFloor = 0.30
	DefaultFaqFloor = 0.50
	DefaultTopDocK  = 4
	DefaultTopFaqK  = 3
)

// Store is the scan-on-read side of the content store.
type Store interface {
	ScanChunks(ctx context.Context, tenantID string) ([]knowledge.Chunk, error)
	ScanFaqs(ctx context.Context, tenantID string) ([]knowledge.Faq, error)
}

type Options struct {
	TopDocK int
	TopFaqK int
}

type DocHit struct {
	Chunk knowledge.Chunk
	Score float64
}

type FaqHit struct {
	Faq   knowledge.Faq
	Score float64
}

type Result struct {
	Docs []DocHit
	Faqs []FaqHit
}

func (r Result) Empty() bool { return len(r.Docs) == 0 && len(r.Faqs) == 0 }

type Retriever struct {
	store    Store
	embedder ai.Embedder
	docFloor float64
	faqFloor float64
	defaults Options
}

type Option func(*Retriever)

func WithFloors(doc, faq float64) Option {
	return func(r *Retriever) {
		r.docFloor = doc
		r.faqFloor = faq
	}
}

func WithDefaultK(docs, faqs int) Option {
	return func(r *Retriever) {
		if docs > 0 {
			r.defaults.TopDocK = docs
		}
		if faqs > 0 {
			r.defaults.TopFaqK = faqs
		}
	}
}

func New(store Store, embedder ai.Embedder, opts ...Option) *Retriever {
	r := &Retriever{
		store:    store,
		embedder: embedder,
		docFloor: DefaultDocFloor,
		faqFloor: DefaultFaqFloor,
		defaults: Options{TopDocK: DefaultTopDocK, TopFaqK: DefaultTopFaqK},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Retriever) Floors() (doc, faq float64) { return r.docFloor, r.faqFloor }

// Retrieve returns the top-K chunks scoring at least the document floor and the
// top-K FAQs scoring at least the FAQ floor. Zero K values use the defaults.
func (r *Retriever) Retrieve(ctx context.Context, tenantID, query string, opts Options) (Result, error) {
	if opts.TopDocK <= 0 {
		opts.TopDocK = r.defaults.TopDocK
	}
	if opts.TopFaqK <= 0 {
		opts.TopFaqK = r.defaults.TopFaqK
	}

	qv, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return Result{}, fmt.Errorf("embed query: %w", err)
	}
	if len(qv) == 0 {
		return Result{}, ai.ErrEmptyEmbedding
	}
	q := Normalize(qv)

	chunks, err := r.store.ScanChunks(ctx, tenantID)
	if err != nil {
		return Result{}, err
	}
	faqs, err := r.store.ScanFaqs(ctx, tenantID)
	if err != nil {
		return Result{}, err
	}

	var res Result
	for _, c := range chunks {
		score := Dot(q, Normalize(c.Embedding))
		if score >= r.docFloor {
			res.Docs = append(res.Docs, DocHit{Chunk: c, Score: score})
		}
	}
	for _, f := range faqs {
		score := math.Max(
			Dot(q, Normalize(f.QuestionEmbedding)),
			Dot(q, Normalize(f.CompositeEmbedding)),
		)
		if score >= r.faqFloor {
			res.Faqs = append(res.Faqs, FaqHit{Faq: f, Score: score})
		}
	}

	sort.SliceStable(res.Docs, func(i, j int) bool { return res.Docs[i].Score > res.Docs[j].Score })
	sort.SliceStable(res.Faqs, func(i, j int) bool { return res.Faqs[i].Score > res.Faqs[j].Score })
	if len(res.Docs) > opts.TopDocK {
		res.Docs = res.Docs[:opts.TopDocK]
	}
	if len(res.Faqs) > opts.TopFaqK {
		res.Faqs = res.Faqs[:opts.TopFaqK]
	}
	return res, nil
}

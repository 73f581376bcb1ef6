package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/seanblong/contextselect/internal/ai"
	"github.com/seanblong/contextselect/pkg/models"
)

var (
	ErrBackendUnavailable = errors.New("analysis backend unavailable")
	ErrMalformedResponse  = errors.New("malformed analysis response")
)

const systemInstruction = "You are a helpful assistant that analyzes questions and returns JSON responses."

const promptTemplate = `
다음 질문을 분석하여 JSON 형태로 답변해주세요:

질문: "%s"

다음 형식으로 분석해주세요:
{
  "intent": "질문의 의도 (예: 금연구역 지정 절차 문의, 규정 내용 확인 등)",
  "keywords": ["핵심 키워드 배열"],
  "category": "질문 카테고리 (definition/procedure/regulation/comparison/analysis/general)",
  "complexity": "복잡도 (simple/medium/complex)",
  "entities": ["질문에서 언급된 구체적 개체들"],
  "context": "질문의 맥락 설명"
}

분석 기준:
- category: definition(정의), procedure(절차), regulation(규정), comparison(비교), analysis(분석), general(일반)
- complexity: simple(단순), medium(중간), complex(복잡)
- keywords: 질문의 핵심을 나타내는 중요한 단어들
- entities: 구체적인 명사, 기관명, 법령명 등
`

// Cache stores analyses produced by the model.
type Cache interface {
	Get(question string) (models.QuestionAnalysis, bool, error)
	Put(question string, qa models.QuestionAnalysis) error
}

type Analyzer struct {
	Client ai.Client
	Cache  Cache
}

// New creates an analyzer. A nil client means every question takes the
// rule-based path; cache may be nil.
func New(client ai.Client, cache Cache) *Analyzer {
	return &Analyzer{
		Client: client,
		Cache:  cache,
	}
}

// Analyze never fails. Backend and parse errors are logged and answered with
// the rule-based analysis.
func (a *Analyzer) Analyze(ctx context.Context, question string) models.QuestionAnalysis {
	if a == nil || a.Client == nil {
		return Fallback(question)
	}

	if a.Cache != nil {
		qa, found, err := a.Cache.Get(question)
		if err != nil {
			log.Warn().Err(err).Msg("analysis cache read failed")
		} else if found {
			log.Debug().Str("question", question).Msg("analysis cache hit")
			return qa
		}
	}

	qa, err := a.analyzeWithModel(ctx, question)
	if err != nil {
		log.Warn().Err(err).Str("model", a.Client.Model()).Msg("AI question analysis failed, using rule-based analysis")
		return Fallback(question)
	}

	if a.Cache != nil {
		if err := a.Cache.Put(question, qa); err != nil {
			log.Warn().Err(err).Msg("analysis cache write failed")
		}
	}
	return qa
}

func (a *Analyzer) analyzeWithModel(ctx context.Context, question string) (models.QuestionAnalysis, error) {
	text, err := a.Client.Generate(ctx, systemInstruction, fmt.Sprintf(promptTemplate, question))
	if err != nil {
		return models.QuestionAnalysis{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if strings.TrimSpace(text) == "" {
		return models.QuestionAnalysis{}, fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}
	return parseResponse(text, question)
}

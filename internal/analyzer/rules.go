package analyzer

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/seanblong/contextselect/pkg/models"
)

// vocabulary is the fixed domain keyword list, in match order.
var vocabulary = []string{
	"금연", "금연구역", "건강증진", "시행령", "시행규칙", "지정", "관리", "업무", "지침",
	"서비스", "통합", "사업", "지원", "규정", "법률", "조항", "항목", "절차", "방법",
	"기준", "요건", "조건", "제한", "신고", "신청", "처리", "심사", "승인", "허가",
	"등록", "변경", "취소", "정지", "폐지", "해제", "위반", "과태료", "벌금", "처벌",
	"제재", "조치", "시설", "장소", "구역", "지역", "범위", "대상", "기관", "단체",
	"조직", "협회", "연합", "연합회", "담당", "책임", "의무", "권한", "기능", "역할",
}

type categoryCue struct {
	category models.Category
	cues     []string
}

var categoryCues = []categoryCue{
	{models.CategoryDefinition, []string{"무엇", "정의", "의미", "개념"}},
	{models.CategoryProcedure, []string{"절차", "방법", "과정", "단계"}},
	{models.CategoryRegulation, []string{"규정", "법령", "조항", "규칙"}},
	{models.CategoryComparison, []string{"비교", "차이", "구분", "vs"}},
	{models.CategoryAnalysis, []string{"분석", "검토", "평가", "고려"}},
}

// Law names first, then organizations.
var entityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)국민건강증진법률`),
	regexp.MustCompile(`(?i)시행령`),
	regexp.MustCompile(`(?i)시행규칙`),
	regexp.MustCompile(`(?i)질서위반행위규제법`),
	regexp.MustCompile(`(?i)보건복지부`),
	regexp.MustCompile(`(?i)시도`),
	regexp.MustCompile(`(?i)시군구`),
	regexp.MustCompile(`(?i)지역사회`),
}

var intentTemplates = map[models.Category]string{
	models.CategoryDefinition: "%s에 대한 정의나 개념 문의",
	models.CategoryProcedure:  "%s 관련 절차나 방법 문의",
	models.CategoryRegulation: "%s 관련 규정이나 법령 문의",
	models.CategoryComparison: "%s 관련 비교나 차이점 문의",
	models.CategoryAnalysis:   "%s 관련 분석이나 검토 문의",
}

const genericIntent = "일반적인 문의"

// Fallback analyzes question without a model. It is deterministic and never
// fails.
func Fallback(question string) models.QuestionAnalysis {
	keywords := ExtractKeywords(question)
	category := ClassifyCategory(question)

	return models.QuestionAnalysis{
		Intent:     intent(keywords, category),
		Keywords:   keywords,
		Category:   category,
		Complexity: AssessComplexity(question),
		Entities:   ExtractEntities(question),
		Context:    question,
	}
}

// ExtractKeywords returns the vocabulary words found in question, in
// vocabulary order.
func ExtractKeywords(question string) []string {
	q := strings.ToLower(question)
	keywords := []string{}
	for _, kw := range vocabulary {
		if strings.Contains(q, strings.ToLower(kw)) {
			keywords = append(keywords, kw)
		}
	}
	return keywords
}

// ClassifyCategory returns the category of the first cue found in question,
// or general when none matches.
func ClassifyCategory(question string) models.Category {
	q := strings.ToLower(question)
	for _, group := range categoryCues {
		for _, cue := range group.cues {
			if strings.Contains(q, cue) {
				return group.category
			}
		}
	}
	return models.CategoryGeneral
}

// AssessComplexity grades question by its length and wording.
func AssessComplexity(question string) models.Complexity {
	q := strings.ToLower(question)
	n := utf8.RuneCountInString(q)

	if n < 20 && !strings.Contains(q, "?") && !strings.Contains(q, "어떻게") {
		return models.ComplexitySimple
	}
	if n > 50 || strings.Contains(q, "여러") || strings.Contains(q, "복합") || strings.Contains(q, "종합") {
		return models.ComplexityComplex
	}
	return models.ComplexityMedium
}

// ExtractEntities returns the law and organization names in question,
// without repeats.
func ExtractEntities(question string) []string {
	entities := []string{}
	seen := map[string]struct{}{}
	for _, re := range entityPatterns {
		for _, m := range re.FindAllString(question, -1) {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			entities = append(entities, m)
		}
	}
	return entities
}

func intent(keywords []string, category models.Category) string {
	if len(keywords) == 0 {
		return genericIntent
	}
	tmpl, ok := intentTemplates[category]
	if !ok {
		tmpl = "%s 관련 일반 문의"
	}
	return fmt.Sprintf(tmpl, keywords[0])
}

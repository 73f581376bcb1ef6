// Package synonym expands administrative and regulatory terms into the
// related wording that tends to appear in guideline documents.
package synonym

import (
	"strings"

	"github.com/seanblong/contextselect/internal/vector"
)

type entry struct {
	term     string
	synonyms []string
}

// table is ordered so expansion output is deterministic.
var table = []entry{
	{"금연", []string{"금연사업", "담배금지", "흡연금지", "금연정책", "금연운동", "금연지원"}},
	{"지정", []string{"선정", "고시", "공시", "발표", "지정고시"}},
	{"관리", []string{"운영", "관할", "담당", "처리", "관리운영", "관리업무"}},
	{"절차", []string{"방법", "과정", "순서", "단계", "절차방법", "처리절차"}},
	{"신청", []string{"접수", "제출", "등록", "신고", "신청접수", "제출신청"}},
	{"심사", []string{"검토", "심의", "평가", "심사검토", "심의평가"}},
	{"승인", []string{"허가", "인가", "승인허가", "인가승인"}},
	{"규정", []string{"법령", "규칙", "지침", "규정사항", "법규"}},
	{"지침", []string{"가이드", "매뉴얼", "지침서", "운영지침"}},
	{"서비스", []string{"지원", "제공", "서비스지원", "지원서비스"}},
	{"건강증진", []string{"건강향상", "건강증진사업", "건강관리"}},
	{"시설", []string{"장소", "시설물", "건물", "공간"}},
	{"위반", []string{"위반행위", "위반사항", "위반처리"}},
	{"과태료", []string{"벌금", "과금", "처벌", "제재"}},
	{"보고", []string{"제출", "보고서", "보고사항", "보고제출"}},
	{"교육", []string{"훈련", "교육프로그램", "교육과정", "연수"}},
	{"홍보", []string{"선전", "홍보활동", "홍보사업", "홍보물"}},
	{"점검", []string{"검사", "점검사항", "점검업무", "모니터링"}},
	{"통계", []string{"통계자료", "통계분석", "통계수집", "데이터"}},
	{"분석", []string{"검토", "분석자료", "분석결과", "연구"}},
	{"개선", []string{"향상", "개선사항", "개선방안", "개선계획"}},
	{"지원", []string{"도움", "지원사업", "지원활동", "지원정책"}},
	{"협력", []string{"협조", "협력사업", "협력활동", "연계"}},
	{"평가", []string{"검증", "평가사항", "평가결과", "성과평가"}},
	{"운영", []string{"관리", "운영방법", "운영계획", "운영지침"}},
	{"개발", []string{"구축", "개발사업", "개발계획", "시스템개발"}},
	{"보안", []string{"안전", "보안관리", "보안사항", "정보보안"}},
	{"업데이트", []string{"갱신", "수정", "변경", "개선"}},
	{"장애", []string{"문제", "오류", "장애처리", "문제해결"}},
	{"대응", []string{"처리", "대응방안", "대응절차", "대응계획"}},
}

// Lookup returns the synonyms registered for term, or nil.
func Lookup(term string) []string {
	for _, e := range table {
		if e.term == term {
			return e.synonyms
		}
	}
	return nil
}

// Expand returns the deduplicated synonyms of every recognised term in text.
// A word is recognised when it equals a table term or starts with one, so
// "금연구역" and "절차가" (term plus particle) both expand.
func Expand(text string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, word := range strings.Fields(text) {
		w := vector.Clean(word)
		if w == "" {
			continue
		}
		for _, e := range table {
			if !strings.HasPrefix(w, e.term) {
				continue
			}
			for _, s := range e.synonyms {
				if _, ok := seen[s]; ok {
					continue
				}
				seen[s] = struct{}{}
				out = append(out, s)
			}
		}
	}
	return out
}

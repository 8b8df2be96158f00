package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/macchain/backend/internal/models"
)

// DefaultHebrewText is used when a verse request carries no original text
const DefaultHebrewText = "בְּרֵאשִׁית בָּרָא אֱלֹהִים אֵת הַשָּׁמַיִם וְאֵת הָאָרֶץ"

var passageTemplates = map[string]string{
	TypeGeneral: `**%s 종합 분석 (Mock)**

**주요 메시지**
이 본문은 하나님께서 자기 백성과 맺으신 관계와 그 관계 안에서 드러나는 신실하심을 보여줍니다.
본문의 흐름은 하나님의 주도적인 은혜와 그에 대한 사람의 응답을 중심으로 전개됩니다.

**현대적 적용**
- 오늘 하루 하나님의 신실하심을 기억하며 시작하기
- 말씀 앞에서 나의 응답을 구체적으로 정리하기
- 공동체와 함께 받은 은혜를 나누기`,

	TypeTheological: `**%s 신학적 분석 (Mock)**

**주요 교리**
본문은 하나님의 주권과 언약, 그리고 은혜를 통한 구원이라는 성경 전체의 큰 주제와 맞닿아 있습니다.

**역사적 배경**
본문이 기록된 시대의 신앙 공동체는 주변 문화의 압력 속에서 정체성을 지켜야 했습니다.

**현대적 적용**
- 하나님의 주권을 신뢰하며 삶의 우선순위 점검하기
- 언약 공동체의 일원으로서 책임 있게 살아가기`,

	TypeDevotional: `**%s 묵상 (Mock)**

**묵상**
이 말씀은 오늘 나에게 하나님 앞에 잠잠히 머무르라고 초대합니다.
서두르던 마음을 내려놓고 말씀이 내 삶의 자리에서 어떻게 살아나는지 바라봅니다.

**개인적 적용**
- 오늘 마음에 남은 한 구절을 적어 두고 하루 동안 되새기기
- 말씀에 비추어 회개하거나 감사할 것을 찾기

**기도 제안**
주님, 오늘 주신 말씀을 따라 살아갈 힘을 주옵소서. 아멘.`,

	TypeHistorical: `**%s 역사적 배경 (Mock)**

**역사적 배경**
본문은 고대 근동의 정치적 격변 속에서 기록되었으며 당시 이스라엘 주변 강대국의 영향이 곳곳에 드러납니다.

**문화적 맥락**
- 가족과 공동체 중심의 사회 구조
- 제의와 절기를 통해 신앙을 기억하는 전통
- 구전으로 전승된 이야기를 기록으로 남기는 과정`,
}

var mockWords = []WordAnalysis{
	{
		Original:        "בְּרֵאשִׁית",
		Transliteration: "베레시트",
		Meaning:         "처음에, 시작에",
		Grammar:         "전치사구, 시간 부사",
		Significance:    "하나님의 창조 사역의 절대적 시작점을 나타냄",
	},
	{
		Original:        "בָּרָא",
		Transliteration: "바라",
		Meaning:         "창조하다",
		Grammar:         "칼 완료형 3인칭 남성 단수",
		Significance:    "무에서 유를 창조하는 하나님의 독특한 능력",
	},
	{
		Original:        "אֱלֹהִים",
		Transliteration: "엘로힘",
		Meaning:         "하나님",
		Grammar:         "남성 복수형이지만 단수 의미",
		Significance:    "하나님의 위엄과 능력을 강조",
	},
}

var mockKeyWords = []string{"창조", "시작", "하나님", "천지", "주권", "질서", "선함", "목적"}

// Mock produces canned Korean analyses without any external service
type Mock struct{}

// Source implements Generator
func (Mock) Source() string { return models.AnalysisSourceMock }

// Passage implements Generator
func (Mock) Passage(_ context.Context, passage, analysisType string) (string, error) {
	tmpl, ok := passageTemplates[analysisType]
	if !ok {
		tmpl = passageTemplates[TypeGeneral]
	}
	return fmt.Sprintf(tmpl, strings.TrimSpace(passage)), nil
}

// Verse implements Generator. The result depends only on its arguments.
func (Mock) Verse(_ context.Context, book string, chapter, verse int, hebrewText string) (*VerseAnalysis, error) {
	if hebrewText == "" {
		hebrewText = DefaultHebrewText
	}
	ref := fmt.Sprintf("%s %d:%d", book, chapter, verse)

	words := make([]WordAnalysis, len(mockWords))
	copy(words, mockWords)
	keyWords := make([]string, len(mockKeyWords))
	copy(keyWords, mockKeyWords)

	return &VerseAnalysis{
		Book:         book,
		Chapter:      chapter,
		Verse:        verse,
		HebrewText:   hebrewText,
		WordAnalysis: words,
		OverallMeaning: fmt.Sprintf(`**%s 전체 의미 (Mock)**

이 구절은 성경 전체의 서두를 장식하는 중요한 선언문입니다.
하나님께서 시간과 공간의 시작점에서 천지를 창조하셨음을 선포합니다.

히브리어 원문의 구조는 하나님의 창조 행위가 계획적이고 의도적이었음을 보여줍니다.
'바라'(창조하다) 동사는 성경에서 오직 하나님만이 주체가 되는 특별한 창조 행위를 나타냅니다.`, ref),
		CulturalBackground: fmt.Sprintf(`**%s 문화적 배경 (Mock)**

고대 근동 지역의 창조 신화들과 달리, 성경의 창조 기록은 다음과 같은 독특함을 보입니다:

1. **단일신론적 관점**: 여러 신들의 갈등이 아닌 한 분 하나님의 주권적 창조
2. **질서 있는 창조**: 혼돈에서 질서로의 체계적 변화
3. **선한 창조**: 창조된 모든 것이 '좋았더라'는 평가

이는 당시 메소포타미아의 에누마 엘리시나 이집트 창조 신화와 뚜렷한 대조를 이룹니다.`, ref),
		PracticalApplication: fmt.Sprintf(`**%s 실용적 적용 (Mock)**

**개인적 적용:**
- 하나님이 나의 삶의 창조주이심을 인정하고 의존하기
- 매일을 새로운 창조의 기회로 바라보기
- 하나님의 질서 안에서 살아가기

**공동체적 적용:**
- 창조 질서를 존중하는 환경 보호 실천
- 모든 사람이 하나님의 형상으로 창조되었음을 인정
- 창조주 하나님께 함께 예배드리기

**사회적 적용:**
- 창조 세계의 청지기 역할 감당
- 과학과 신앙의 조화로운 관계 추구`, ref),
		KeyWords: keyWords,
	}, nil
}

package title

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateShortMessageVerbatim(t *testing.T) {
	assert.Equal(t, "hi", Generate("hi"))
	assert.Equal(t, "find me a scholarship", Generate("  find   me a\tscholarship  "))
}

func TestGenerateKeywordCategories(t *testing.T) {
	got := Generate("I am looking for engineering scholarships for undergraduate international students")
	assert.Equal(t, "Engineering Undergraduate Scholarships", got)
}

func TestGenerateCategoryOrderIndependentOfWordOrder(t *testing.T) {
	// 人群类关键词出现在前面，但类别优先级仍然是 专业 > 学历
	got := Generate("international students who study medicine need help finding graduate level funding options today")
	assert.Equal(t, "Graduate International Scholarships", got)
}

func TestGenerateMeaningfulWordFallback(t *testing.T) {
	got := Generate("robotics and drones with superb quality motors that go far beyond what most high schoolers purchase today")
	assert.Equal(t, "Robotics Scholarships", got)
}

func TestGenerateNewSearchFallback(t *testing.T) {
	// 超过 50 个字符、全部由停用词和短词构成
	got := Generate("the and for the and for the and for the and for the and for the")
	assert.Equal(t, "New Search", got)
}

func TestGenerateDeterministic(t *testing.T) {
	input := "Please help me find merit based scholarships for first-generation college students"
	first := Generate(input)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Generate(input))
	}
}

func TestGenerateTitleStableWhenFedBack(t *testing.T) {
	// 生成的标题都不超过 50 字符，再次输入会原样返回
	titleStr := Generate("I am looking for engineering scholarships for undergraduate international students")
	assert.Equal(t, titleStr, Generate(titleStr))
}

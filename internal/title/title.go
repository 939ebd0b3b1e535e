// Package title 实现了根据首条用户消息生成会话标题的启发式算法。
package title

import (
	"strings"
	"unicode/utf8"
)

const maxVerbatimLen = 50

// 奖学金领域关键词，按优先级分为四类：专业、学历层次、类型、人群。
// 每类最多命中一个词，最终标题最多取前两个命中。
var fieldKeywords = []string{
	"engineering", "medical", "business", "arts", "science", "technology", "computer", "nursing", "law", "education",
}

var levelKeywords = []string{
	"undergraduate", "graduate", "phd", "masters", "bachelors", "doctoral", "postgraduate",
}

var typeKeywords = []string{
	"merit", "need-based", "academic", "athletic", "creative", "research", "leadership", "community",
}

var demographicKeywords = []string{
	"international", "minority", "women", "first-generation", "transfer", "veteran", "disabled", "lgbtq",
}

// 不适合作为标题的常见词。
var excludeWords = []string{
	"the", "and", "for", "with", "that", "this", "have", "will", "need", "want", "looking", "searching", "find", "help",
	"scholarship", "scholarships", "financial", "aid", "grant", "grants", "funding", "tuition", "money", "cost", "expensive",
	"please", "can", "you", "help", "me", "find", "get", "apply", "application", "deadline", "requirements", "eligibility",
}

// Generate 根据首条用户消息推导一个简短的会话标题。
// 算法是纯函数：相同输入永远产生相同标题，不依赖任何外部调用。
func Generate(firstMessage string) string {
	// 归一化空白字符
	cleanMessage := strings.Join(strings.Fields(firstMessage), " ")

	// 消息足够短时直接使用原文
	if utf8.RuneCountInString(cleanMessage) <= maxVerbatimLen {
		return cleanMessage
	}

	words := strings.Split(strings.ToLower(cleanMessage), " ")

	// 按类别顺序收集命中的关键词，每类至多一个
	var titleParts []string
	for _, category := range [][]string{fieldKeywords, levelKeywords, typeKeywords, demographicKeywords} {
		if found := findKeyword(words, category); found != "" {
			titleParts = append(titleParts, capitalize(found))
		}
	}

	// 命中关键词时，最多取前两个组成标题
	if len(titleParts) > 0 {
		if len(titleParts) > 2 {
			titleParts = titleParts[:2]
		}
		return strings.Join(titleParts, " ") + " Scholarships"
	}

	// 未命中关键词时，退而选取第一个有意义的词
	if word := firstMeaningfulWord(words, 3); word != "" {
		return capitalize(word) + " Scholarships"
	}

	// 放宽长度阈值再试一次
	if word := firstMeaningfulWord(words, 2); word != "" {
		return capitalize(word) + " Scholarships"
	}

	return "New Search"
}

// findKeyword 返回 keywords 中第一个被任意单词包含的关键词。
func findKeyword(words, keywords []string) string {
	for _, keyword := range keywords {
		for _, word := range words {
			if strings.Contains(word, keyword) {
				return keyword
			}
		}
	}
	return ""
}

// firstMeaningfulWord 返回第一个长度大于 minLen、且与任何停用词
// 都不存在包含关系的单词。
func firstMeaningfulWord(words []string, minLen int) string {
	for _, word := range words {
		if len(word) <= minLen {
			continue
		}
		if containsExcluded(word) {
			continue
		}
		return word
	}
	return ""
}

func containsExcluded(word string) bool {
	for _, exclude := range excludeWords {
		// 双向包含都算命中："look" 会因 "looking" 被排除
		if strings.Contains(word, exclude) || strings.Contains(exclude, word) {
			return true
		}
	}
	return false
}

func capitalize(word string) string {
	if word == "" {
		return word
	}
	return strings.ToUpper(word[:1]) + word[1:]
}

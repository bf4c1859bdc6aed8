// Package prompt builds the Chinese task prompts sent to the language model.
package prompt

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	historyTurns     = 3 // recent turns included in a prompt
	historyAnswerLen = 200

	exerciseContentLen = 3000
	outlineContentLen  = 2000
	summaryContentLen  = 1500
	keywordContentLen  = 1000
)

// HistoryTurn is one prior exchange included for continuity.
type HistoryTurn struct {
	Query  string
	Answer string
}

var (
	similarityMarkerRe = regexp.MustCompile(`\[相似度: [0-9.]+ \]`)
	blankLinesRe       = regexp.MustCompile(`\n\s*\n`)
)

// StripSimilarityMarkers removes retrieval score annotations from a document
// so they never leak into the model input.
func StripSimilarityMarkers(doc string) string {
	if !strings.Contains(doc, "[相似度:") {
		return doc
	}
	cleaned := similarityMarkerRe.ReplaceAllString(doc, "")
	return strings.TrimSpace(blankLinesRe.ReplaceAllString(cleaned, "\n\n"))
}

func truncateRunes(text string, maxRunes int) string {
	if utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	return string([]rune(text)[:maxRunes])
}

func recentHistory(history []HistoryTurn) []HistoryTurn {
	if len(history) > historyTurns {
		return history[len(history)-historyTurns:]
	}
	return history
}

// QA builds the knowledge-grounded answer prompt. History, when present,
// precedes the knowledge section.
func QA(query string, retrievedDocs []string, history []HistoryTurn) string {
	cleaned := make([]string, 0, len(retrievedDocs))
	for _, doc := range retrievedDocs {
		cleaned = append(cleaned, StripSimilarityMarkers(doc))
	}

	contextText := "未找到相关内容"
	if len(cleaned) > 0 {
		contextText = strings.Join(cleaned, "\n\n")
	}

	if len(history) == 0 {
		return fmt.Sprintf(`你是一个专业的教学助手。请基于以下知识内容，准确、完整地回答用户的问题。

知识内容：
%s

用户问题：%s

请基于上述知识内容，给出准确、完整、易于理解的回答。要求：
1. 回答要条理清晰，重点突出
2. 如果知识内容中没有相关信息，请明确说明
3. 不要直接复制知识内容，要用自己的话重新组织
4. 回答要简洁明了，避免冗余
5. 如果涉及专业术语，请适当解释

回答：`, contextText, query)
	}

	var historyText strings.Builder
	historyText.WriteString("\n\n历史对话：\n")
	for i, turn := range recentHistory(history) {
		fmt.Fprintf(&historyText, "问题%d: %s\n", i+1, turn.Query)
		fmt.Fprintf(&historyText, "回答%d: %s...\n\n", i+1, truncateRunes(turn.Answer, historyAnswerLen))
	}

	return fmt.Sprintf(`你是一个专业的教学助手。请基于以下知识内容和历史对话记录，准确、完整地回答用户的问题。

%s知识内容：
%s

用户问题：%s

请基于上述知识内容和历史对话记录，给出准确、完整、易于理解的回答。要求：
1. 回答要条理清晰，重点突出
2. 如果知识内容中没有相关信息，请明确说明
3. 不要直接复制知识内容，要用自己的话重新组织
4. 回答要简洁明了，避免冗余
5. 如果涉及专业术语，请适当解释
6. 注意与历史对话的连贯性

回答：`, historyText.String(), contextText, query)
}

var difficultyNames = map[string]string{
	"easy":   "简单",
	"medium": "中等",
	"hard":   "困难",
}

// DifficultyName maps the API difficulty to its Chinese label, defaulting
// to medium.
func DifficultyName(difficulty string) string {
	if name, ok := difficultyNames[difficulty]; ok {
		return name
	}
	return "中等"
}

// Exercise builds the multiple-choice generation prompt.
func Exercise(content string, difficulty string, count int) string {
	difficultyText := DifficultyName(difficulty)

	return fmt.Sprintf(`请基于以下教学内容，生成%s难度的%d道选择题。

教学内容：
%s

要求：
1. 题目难度符合%s级别
2. 每道题包含4个选项，其中1个正确答案
3. 题目要覆盖教学内容的主要知识点
4. 提供详细的解析说明
5. 题目格式规范，便于理解
6. 选项要合理，避免明显错误选项

请按照以下格式生成%d道选择题：

题目1：[题干]
A. [选项A]
B. [选项B]
C. [选项C]
D. [选项D]
正确答案：[A/B/C/D]
解析：[详细解析]

题目2：[题干]
...

请生成%d道选择题：`, difficultyText, count, truncateRunes(content, exerciseContentLen), difficultyText, count, count)
}

// Outline builds the teaching outline prompt.
func Outline(content string, maxWords int) string {
	return fmt.Sprintf(`请根据以下教学内容，生成一个详细的教学大纲。

教学内容：
%s

要求：
1. 结构清晰，层次分明，使用数字编号（如1.1、1.2、2.1等）
2. 包含主要知识点和重点内容
3. 适合教学使用，内容完整
4. 字数控制在%d字左右
5. 确保每个部分都有完整的描述
6. 大纲应该包含：教学目标、重点难点、教学内容、教学方法等
7. 使用中文编写，语言简洁明了

请生成完整的教学大纲，确保内容完整且结构清晰：

教学大纲：`, truncateRunes(content, outlineContentLen), maxWords)
}

// Chat builds the free conversation prompt without a knowledge section.
func Chat(query string, history []HistoryTurn) string {
	if len(history) == 0 {
		return fmt.Sprintf(`你是一个友好的AI助手，请回答用户的问题。

用户问题：%s

请给出准确、有帮助的回答。要求：
1. 回答要准确、有用
2. 语言要友好、自然
3. 如果不知道答案，请诚实说明
4. 回答要简洁明了

回答：`, query)
	}

	var historyText strings.Builder
	historyText.WriteString("\n\n历史对话：\n")
	for i, turn := range recentHistory(history) {
		fmt.Fprintf(&historyText, "用户%d: %s\n", i+1, turn.Query)
		fmt.Fprintf(&historyText, "助手%d: %s...\n\n", i+1, truncateRunes(turn.Answer, historyAnswerLen))
	}

	return fmt.Sprintf(`你是一个友好的AI助手，请基于历史对话记录回答用户的问题。

%s用户问题：%s

请基于历史对话记录，给出准确、有帮助的回答。要求：
1. 回答要准确、有用
2. 语言要友好、自然
3. 如果不知道答案，请诚实说明
4. 回答要简洁明了
5. 注意与历史对话的连贯性

回答：`, historyText.String(), query)
}

// Summary builds the content summarization prompt.
func Summary(content string, maxLength int) string {
	if maxLength <= 0 {
		maxLength = 500
	}
	return fmt.Sprintf(`请对以下内容进行总结。

内容：
%s

要求：
1. 总结要准确、完整
2. 突出主要内容要点
3. 字数控制在%d字以内
4. 语言简洁明了
5. 保持逻辑结构清晰

总结：`, truncateRunes(content, summaryContentLen), maxLength)
}

// KeywordExtraction builds the keyword extraction prompt.
func KeywordExtraction(content string) string {
	return fmt.Sprintf(`请从以下内容中提取关键词。

内容：
%s

要求：
1. 提取5-10个最重要的关键词
2. 关键词要准确反映内容主题
3. 包括专业术语和重要概念
4. 按重要性排序
5. 用逗号分隔

关键词：`, truncateRunes(content, keywordContentLen))
}

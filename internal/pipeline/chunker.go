package pipeline

import (
	"fmt"
	"strings"

	"smart-edu-go/internal/model"
)

// 缺省分块参数：目标块长 1000 字符，相邻块重叠 100 个词。
const (
	DefaultChunkSize    = 1000
	DefaultOverlapWords = 100
)

// SplitIntoChunks 将规范化文本按词贪心累积切分为带重叠窗口的分块。
//
// 当追加下一个词会使缓冲超过 chunkSize 字符（且缓冲非空）时封块，新缓冲
// 以上一块末尾 overlapWords 个词加上触发溢出的词作为种子，保证上下文不在
// 块边界丢失。单个超长词不会被硬切，直到后续词到来才封块；最后的不满块
// 始终输出。空白输入产生零个分块。
//
// startChar/endChar 为近似偏移：重叠种子重新拼接后长度与原文不完全一致，
// 偏移会逐块漂移。下游仅用于展示提示，保持这一已知的不精确性。
func SplitIntoChunks(content, fileName string, chunkSize, overlapWords int) []model.DocumentChunk {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlapWords < 0 {
		overlapWords = 0
	}

	words := strings.Fields(content)
	if len(words) == 0 {
		return nil
	}

	var chunks []model.DocumentChunk
	var buf []string
	bufLen := 0
	startChar := 0

	seal := func() {
		text := strings.Join(buf, " ")
		chunks = append(chunks, model.DocumentChunk{
			ID:      fmt.Sprintf("%s_chunk_%d", fileName, len(chunks)),
			Content: text,
			Index:   len(chunks),
			Metadata: model.ChunkPosition{
				StartChar: startChar,
				EndChar:   startChar + len(text),
			},
		})
	}

	for _, w := range words {
		add := len(w)
		if len(buf) > 0 {
			add++ // 词间空格
		}
		if bufLen+add > chunkSize && len(buf) > 0 {
			seal()

			// 以末尾 overlapWords 个词为种子开启新缓冲
			ov := overlapWords
			if ov > len(buf) {
				ov = len(buf)
			}
			seed := buf[len(buf)-ov:]
			seedText := strings.Join(seed, " ")
			startChar += bufLen - len(seedText)

			buf = append(append([]string{}, seed...), w)
			bufLen = len(strings.Join(buf, " "))
			continue
		}
		buf = append(buf, w)
		bufLen += add
	}

	if len(buf) > 0 {
		seal()
	}
	return chunks
}

// SplitPlain 将文本切分为不带重叠的简单词块，供网站内容索引使用。
func SplitPlain(content string, chunkSize int) []string {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	words := strings.Fields(content)
	if len(words) == 0 {
		return nil
	}

	var out []string
	var buf []string
	bufLen := 0
	for _, w := range words {
		add := len(w)
		if len(buf) > 0 {
			add++
		}
		if bufLen+add > chunkSize && len(buf) > 0 {
			out = append(out, strings.Join(buf, " "))
			buf = buf[:0]
			bufLen = 0
			add = len(w)
		}
		buf = append(buf, w)
		bufLen += add
	}
	if len(buf) > 0 {
		out = append(out, strings.Join(buf, " "))
	}
	return out
}

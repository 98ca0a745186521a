package feature

import (
	"regexp"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// minTokenLen 以下的 token 被丢弃（"a"、"of"、"to" 等）
const minTokenLen = 3

// Tokenize 小写化后按非字母数字切分，保留长度 > 2 的 token，按首次出现顺序去重。
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}
	parts := nonAlnum.Split(strings.ToLower(text), -1)
	seen := make(map[string]struct{}, len(parts))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if len(p) < minTokenLen {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// Keywords 返回多段文本 token 的去重并集。
func Keywords(texts ...string) mapset.Set[string] {
	set := mapset.NewThreadUnsafeSet[string]()
	for _, text := range texts {
		for _, tok := range Tokenize(text) {
			set.Add(tok)
		}
	}
	return set
}

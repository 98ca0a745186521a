package source

import (
	"context"
	"maps"
	"os"
	"strings"

	"github.com/juju/errors"
	"gopkg.in/yaml.v3"

	"github.com/rushteam/eventrec/core"
	"github.com/rushteam/eventrec/pkg/conv"
)

// StaticSource 是基于固定数据集的事件源，用于本地运行、导入与测试。
// 记录使用外部字段名（countryCode/priceMin/priceMax/start 等）。
type StaticSource struct {
	name   string
	events []core.RawEvent
}

var _ core.EventSource = (*StaticSource)(nil)

// fixture 是 YAML 数据文件的结构
type fixture struct {
	Events []map[string]any `yaml:"events"`
}

func NewStaticSource(name string, events []core.RawEvent) *StaticSource {
	return &StaticSource{name: name, events: events}
}

// LoadStatic 从 YAML 文件加载事件：
//
//	events:
//	  - id: tm-1
//	    title: Jazz Night
//	    countryCode: AU
func LoadStatic(path string) (*StaticSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return ParseStatic(path, data)
}

// ParseStatic 解析 YAML 数据。
func ParseStatic(name string, data []byte) (*StaticSource, error) {
	var f fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Annotatef(err, "parse fixture %s", name)
	}
	events := make([]core.RawEvent, 0, len(f.Events))
	for _, e := range f.Events {
		events = append(events, core.RawEvent(e))
	}
	return NewStaticSource(name, events), nil
}

func (s *StaticSource) Name() string { return "static:" + s.name }

// Events 返回全部记录。
func (s *StaticSource) Events() []core.RawEvent { return s.events }

func (s *StaticSource) Search(ctx context.Context, q core.Query) ([]core.RawEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	size := q.PageSize
	if size <= 0 {
		size = core.DefaultPageSize
	}
	country := core.NormalizeCountry(q.CountryCode)
	keyword := strings.ToLower(strings.TrimSpace(q.Keyword))

	out := make([]core.RawEvent, 0, size)
	for _, e := range s.events {
		if len(out) >= size {
			break
		}
		if country != "" && core.NormalizeCountry(conv.String(e, "countryCode")) != country {
			continue
		}
		if q.Category != "" && !strings.EqualFold(conv.String(e, "category"), q.Category) {
			continue
		}
		if keyword != "" {
			text := strings.ToLower(conv.String(e, "title") + " " + conv.String(e, "description"))
			if !strings.Contains(text, keyword) {
				continue
			}
		}
		out = append(out, maps.Clone(e))
	}
	return out, nil
}

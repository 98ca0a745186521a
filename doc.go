// Package eventrec 是一个个性化活动推荐引擎。
//
// 设计要点：
// - Pipeline-first: 推荐链路通过 Node 串联（Recall → Feature → Filter → Rank → ReRank）
// - 增量学习: 用户偏好是一组随搜索/点击/评分信号累加、衰减、EMA 平滑的权重表，每次请求重新打分
// - Labels-first: labels 全链路透传与 merge，用于解释召回来源与排序模式
// - 故障隔离: 地区查询并发扇出，单个地区失败只记录日志，全部失败时降级为全局查询
package eventrec

import "github.com/rushteam/eventrec/pipeline"

// 轻量 facade：便于直接 import "eventrec" 使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindRecall  = pipeline.KindRecall
	KindFeature = pipeline.KindFeature
	KindFilter  = pipeline.KindFilter
	KindRank    = pipeline.KindRank
	KindReRank  = pipeline.KindReRank
)

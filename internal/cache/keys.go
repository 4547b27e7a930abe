package cache

import "strings"

// DefaultNamespace 是缓存键的版本化命名空间前缀。提升版本号即可在共享
// Redis 中与历史数据彻底隔离，无需清库。
const DefaultNamespace = "weather:v1"

// Keys 负责从逻辑资源 ID 推导缓存/陈旧副本/锁/统计键。纯函数，无状态。
// 不同用途的键使用互不相同的子前缀，保证同一 ID 的各类键永不冲突。
type Keys struct {
	namespace string
}

// NewKeys 以给定命名空间构建 Keys；为空时使用 DefaultNamespace。
func NewKeys(namespace string) Keys {
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return Keys{namespace: strings.TrimSuffix(namespace, ":")}
}

// Namespace 返回当前生效的命名空间前缀。
func (k Keys) Namespace() string {
	return k.namespace
}

// Fresh 返回新鲜缓存条目的键。
func (k Keys) Fresh(id string) string {
	return k.namespace + ":city:" + NormalizeID(id)
}

// Stale 返回陈旧副本条目的键。
func (k Keys) Stale(id string) string {
	return k.namespace + ":stale:" + NormalizeID(id)
}

// Lock 返回生产者互斥锁的键。
func (k Keys) Lock(id string) string {
	return k.namespace + ":lock:" + NormalizeID(id)
}

// Counter 返回统计计数器的键。
func (k Keys) Counter(name string) string {
	return k.namespace + ":stats:" + name
}

// NormalizeID 规整逻辑资源 ID：去首尾空白、小写化、压缩内部连续空白，
// 使 "San Jose" 与 " san  jose " 命中同一条目。
func NormalizeID(id string) string {
	return strings.Join(strings.Fields(strings.ToLower(id)), " ")
}

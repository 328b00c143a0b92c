// Package ecs provides the entity arena that backs one effect instance.
//
// Every emitter runtime of an instance is an entity; its state lives in
// components. Entities refer to each other by EntityID only, so the emitter
// tree has no owning back-pointers.
package ecs

import (
	"reflect"
	"sort"
)

// EntityID 是实体的唯一标识符
type EntityID uint64

// InvalidEntity is never returned by CreateEntity.
const InvalidEntity EntityID = 0

// EntityManager 管理所有实体和组件
type EntityManager struct {
	nextID uint64
	// 实体-组件映射: EntityID -> ComponentType -> Component实例
	components map[EntityID]map[reflect.Type]interface{}
	// 待删除的实体ID集合（去重）
	entitiesToDestroy map[EntityID]struct{}
	destroyOrder      []EntityID
}

// NewEntityManager 创建一个新的 EntityManager 实例
func NewEntityManager() *EntityManager {
	return &EntityManager{
		nextID:            1, // ID从1开始,0保留为无效ID
		components:        make(map[EntityID]map[reflect.Type]interface{}),
		entitiesToDestroy: make(map[EntityID]struct{}),
	}
}

// CreateEntity 创建新实体并返回唯一ID
func (em *EntityManager) CreateEntity() EntityID {
	id := EntityID(em.nextID)
	em.nextID++
	em.components[id] = make(map[reflect.Type]interface{})
	return id
}

// Exists reports whether id is alive (including entities marked for removal).
func (em *EntityManager) Exists(id EntityID) bool {
	_, ok := em.components[id]
	return ok
}

// DestroyEntity 标记实体待删除(不立即删除)
// 重复标记同一实体是无害的
func (em *EntityManager) DestroyEntity(id EntityID) {
	if _, ok := em.components[id]; !ok {
		return
	}
	if _, marked := em.entitiesToDestroy[id]; marked {
		return
	}
	em.entitiesToDestroy[id] = struct{}{}
	em.destroyOrder = append(em.destroyOrder, id)
}

// IsMarked reports whether id is waiting for RemoveMarkedEntities.
func (em *EntityManager) IsMarked(id EntityID) bool {
	_, ok := em.entitiesToDestroy[id]
	return ok
}

// AddComponent 为实体添加组件
func (em *EntityManager) AddComponent(id EntityID, component interface{}) {
	componentType := reflect.TypeOf(component)
	if compMap, exists := em.components[id]; exists {
		compMap[componentType] = component
	}
}

// RemoveComponent 从实体移除指定类型的组件
func (em *EntityManager) RemoveComponent(id EntityID, componentType reflect.Type) {
	if compMap, exists := em.components[id]; exists {
		delete(compMap, componentType)
	}
}

// GetComponent 获取实体的特定类型组件
func (em *EntityManager) GetComponent(id EntityID, componentType reflect.Type) (interface{}, bool) {
	if compMap, exists := em.components[id]; exists {
		if comp, found := compMap[componentType]; found {
			return comp, true
		}
	}
	return nil, false
}

// HasComponent 检查实体是否拥有特定类型组件
func (em *EntityManager) HasComponent(id EntityID, componentType reflect.Type) bool {
	if compMap, exists := em.components[id]; exists {
		_, found := compMap[componentType]
		return found
	}
	return false
}

// RemoveMarkedEntities 清理所有标记删除的实体
// 返回: 实际删除的实体数量
func (em *EntityManager) RemoveMarkedEntities() int {
	n := 0
	for _, id := range em.destroyOrder {
		if _, ok := em.components[id]; ok {
			delete(em.components, id)
			n++
		}
		delete(em.entitiesToDestroy, id)
	}
	em.destroyOrder = em.destroyOrder[:0] // 清空切片
	return n
}

// EntityCount returns the number of live entities.
func (em *EntityManager) EntityCount() int {
	return len(em.components)
}

// GetEntitiesWith 查询拥有指定组件类型组合的所有实体
// 参数: componentTypes ...reflect.Type - 需要的组件类型列表
// 返回: []EntityID - 满足条件的实体ID列表，按创建顺序（ID 升序）排列
func (em *EntityManager) GetEntitiesWith(componentTypes ...reflect.Type) []EntityID {
	result := make([]EntityID, 0)

	for id, compMap := range em.components {
		hasAll := true
		for _, ct := range componentTypes {
			if _, found := compMap[ct]; !found {
				hasAll = false
				break
			}
		}
		if hasAll {
			result = append(result, id)
		}
	}

	// map 遍历顺序不确定，排序保证结果可复现
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// Clear drops every entity. IDs are not reused afterwards.
func (em *EntityManager) Clear() {
	em.components = make(map[EntityID]map[reflect.Type]interface{})
	em.entitiesToDestroy = make(map[EntityID]struct{})
	em.destroyOrder = em.destroyOrder[:0]
}

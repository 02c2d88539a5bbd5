/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"sort"
	"sync"
)

var defaultRegistry = newModelRegistry()

// SQLModel is a bun model whose table is created by the migrations. Models
// with a lower Priority are created first.
type SQLModel interface {
	Instance() interface{}
	Priority() int
}

// IndexDefinition is a secondary index created by migration 002.
type IndexDefinition struct {
	Name    string
	Columns []string
}

// IndexedModel is an SQLModel that also declares secondary indexes.
type IndexedModel interface {
	SQLModel
	Indexes() []IndexDefinition
}

type ModelRegistry interface {
	Register(model SQLModel)
	Models() []SQLModel
}

type modelRegistry struct {
	models []SQLModel
	mutex  sync.RWMutex
}

func newModelRegistry() ModelRegistry {
	return &modelRegistry{}
}

func (r *modelRegistry) Register(model SQLModel) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.models = append(r.models, model)
}

func (r *modelRegistry) Models() []SQLModel {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make([]SQLModel, len(r.models))
	copy(result, r.models)
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Priority() < result[j].Priority()
	})
	return result
}

type ModelAdapter struct {
	instance interface{}
	priority int
	indexes  []IndexDefinition
}

func NewModelAdapter(instance interface{}, priority int, indexes ...IndexDefinition) *ModelAdapter {
	return &ModelAdapter{
		instance: instance,
		priority: priority,
		indexes:  indexes,
	}
}

func (a *ModelAdapter) Instance() interface{} {
	return a.instance
}

func (a *ModelAdapter) Priority() int {
	return a.priority
}

func (a *ModelAdapter) Indexes() []IndexDefinition {
	return a.indexes
}

// GetRegisteredModels returns the models of the default registry sorted by
// ascending priority.
func GetRegisteredModels() []SQLModel {
	return defaultRegistry.Models()
}

func RegisteredModel(model SQLModel) {
	defaultRegistry.Register(model)
}

func RegisteredModelInstances() []interface{} {
	models := GetRegisteredModels()
	modelInstances := make([]interface{}, len(models))
	for i, model := range models {
		modelInstances[i] = model.Instance()
	}
	return modelInstances
}

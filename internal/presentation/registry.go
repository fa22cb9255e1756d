package presentation

import "sort"

// Spawner строит ресурсы представления для новой сущности. Ошибка означает,
// что сущность не попадает в реестр.
type Spawner func(e *Entity) error

// Registry: единственный владелец сущностей текущей карты (id -> *Entity).
// Не потокобезопасен: им владеет горутина, выполняющая тики.
type Registry struct {
	entities map[string]*Entity
}

// NewRegistry создаёт пустой реестр
func NewRegistry() *Registry {
	return &Registry{entities: make(map[string]*Entity)}
}

// Get возвращает сущность по id
func (r *Registry) Get(id string) (*Entity, bool) {
	e, ok := r.entities[id]
	return e, ok
}

// Len возвращает число сущностей
func (r *Registry) Len() int {
	return len(r.entities)
}

// IDs возвращает отсортированные id
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.entities))
	for id := range r.entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Upsert создаёт сущность (если её нет) или сливает патч в существующую.
// Существующая сущность обновляется на месте, поэтому начатая интерполяция
// продолжается. created == true, если сущность создана этим вызовом.
func (r *Registry) Upsert(id string, kind Kind, p Patch, spawn Spawner) (e *Entity, created bool, err error) {
	if existing, ok := r.entities[id]; ok {
		existing.State.Apply(p)
		return existing, false, nil
	}

	e = newEntity(newEntityState(id, kind, p))
	if spawn != nil {
		if err := spawn(e); err != nil {
			return nil, false, err
		}
	}
	r.entities[id] = e
	return e, true, nil
}

// Remove удаляет сущность и освобождает её ресурсы
func (r *Registry) Remove(id string) bool {
	e, ok := r.entities[id]
	if !ok {
		return false
	}
	e.terminate()
	delete(r.entities, id)
	return true
}

// Clear удаляет все сущности; возвращает их число
func (r *Registry) Clear() int {
	n := len(r.entities)
	for id, e := range r.entities {
		e.terminate()
		delete(r.entities, id)
	}
	return n
}

// forget убирает запись без освобождения ресурсов (они уже освобождены)
func (r *Registry) forget(id string) {
	delete(r.entities, id)
}

/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */
package vpsctl

import (
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/mirkobrombin/vpsctl/pkg/types"
)

// Registry is the in-memory catalog of containers per owner, backed by the
// Store. Every mutation is written to the store before it becomes visible,
// a failed write leaves the registry untouched.
type Registry struct {
	mu      sync.RWMutex
	store   *Store
	owners  map[string][]*types.Container
	byId    map[string]*types.Container
	nextSeq map[string]int
	admins  []string

	locks recordLocks
}

// LoadRegistry builds the registry from the store.
func LoadRegistry(store *Store) (*Registry, error) {
	containers, seqs, err := store.LoadAll()
	if err != nil {
		return nil, persistErr("load", err)
	}
	admins, err := store.LoadAdmins()
	if err != nil {
		return nil, persistErr("load", err)
	}

	r := &Registry{
		store:   store,
		owners:  make(map[string][]*types.Container),
		byId:    make(map[string]*types.Container),
		nextSeq: seqs,
		admins:  admins,
		locks:   recordLocks{m: make(map[string]*recordLock)},
	}
	for i := range containers {
		c := containers[i]
		r.owners[c.OwnerId] = append(r.owners[c.OwnerId], &c)
		r.byId[c.Id] = &c
		if c.Seq >= r.nextSeq[c.OwnerId] {
			r.nextSeq[c.OwnerId] = c.Seq + 1
		}
	}
	for owner := range r.owners {
		r.sortOwner(owner)
	}
	return r, nil
}

func (r *Registry) sortOwner(owner string) {
	list := r.owners[owner]
	sort.SliceStable(list, func(i, j int) bool { return list[i].Seq < list[j].Seq })
}

// Lock acquires the per-record lock of id, held across a runtime call and
// the commit of its outcome. The returned function releases it.
func (r *Registry) Lock(id string) func() {
	return r.locks.lock(id)
}

// NextId reserves the next identifier of an owner, "<prefix>-<owner>-<seq>".
// Reserved sequence numbers are never handed out again, even when the
// creation fails.
func (r *Registry) NextId(owner, prefix string) (string, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seq := r.nextSeq[owner]
	if seq < 1 {
		seq = 1
	}
	id := fmt.Sprintf("%s-%s-%d", prefix, owner, seq)
	for r.byId[id] != nil {
		seq++
		id = fmt.Sprintf("%s-%s-%d", prefix, owner, seq)
	}

	if err := r.store.SaveOwnerSeq(owner, seq+1); err != nil {
		return "", 0, persistErr("reserve id", err)
	}
	r.nextSeq[owner] = seq + 1
	return id, seq, nil
}

// Insert adds a new record.
func (r *Registry) Insert(c types.Container) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.byId[c.Id] != nil {
		return invalid("insert", "container %s already exists", c.Id)
	}
	if c.IsSharedWith(c.OwnerId) {
		return invalid("insert", "owner can not be a grantee")
	}

	rec := c.Copy()
	if err := r.store.SaveContainer(rec); err != nil {
		return persistErr("insert", err)
	}
	r.owners[rec.OwnerId] = append(r.owners[rec.OwnerId], &rec)
	r.byId[rec.Id] = &rec
	r.sortOwner(rec.OwnerId)
	if rec.Seq >= r.nextSeq[rec.OwnerId] {
		r.nextSeq[rec.OwnerId] = rec.Seq + 1
	}
	return nil
}

// Update replaces a record with c.
func (r *Registry) Update(c types.Container) (types.Container, error) {
	return r.Mutate(c.Id, func(cur *types.Container) error {
		if cur.OwnerId != c.OwnerId {
			return invalid("update", "owner of %s can not change", c.Id)
		}
		*cur = c.Copy()
		return nil
	})
}

// Mutate applies fn to a copy of the record and commits the result. An
// error from fn aborts the mutation.
func (r *Registry) Mutate(id string, fn func(c *types.Container) error) (types.Container, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.byId[id]
	if cur == nil {
		return types.Container{}, notFound("update", "container %s not found", id)
	}

	next := cur.Copy()
	if err := fn(&next); err != nil {
		return types.Container{}, err
	}
	next.Id = cur.Id
	next.OwnerId = cur.OwnerId
	if next.IsSharedWith(next.OwnerId) {
		return types.Container{}, invalid("update", "owner can not be a grantee")
	}
	if next.Status != types.StatusSuspended {
		next.Suspension = nil
	}

	if err := r.store.SaveContainer(next); err != nil {
		return types.Container{}, persistErr("update", err)
	}
	*cur = next
	return next.Copy(), nil
}

// Delete removes a record and returns how many containers its owner has
// left.
func (r *Registry) Delete(id string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.byId[id]
	if cur == nil {
		return 0, notFound("delete", "container %s not found", id)
	}
	if err := r.store.DeleteContainer(id); err != nil {
		return 0, persistErr("delete", err)
	}

	owner := cur.OwnerId
	r.owners[owner] = slices.DeleteFunc(r.owners[owner], func(c *types.Container) bool { return c.Id == id })
	if len(r.owners[owner]) == 0 {
		delete(r.owners, owner)
	}
	delete(r.byId, id)
	return len(r.owners[owner]), nil
}

// FindById returns a copy of the record with the given id.
func (r *Registry) FindById(id string) (types.Container, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c := r.byId[id]
	if c == nil {
		return types.Container{}, false
	}
	return c.Copy(), true
}

// Get returns the containers of an owner, in creation order.
func (r *Registry) Get(owner string) []types.Container {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.owners[owner]
	out := make([]types.Container, 0, len(list))
	for _, c := range list {
		out = append(out, c.Copy())
	}
	return out
}

// At returns the container at the 1-based position of the owner's list.
func (r *Registry) At(owner string, number int) (types.Container, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.owners[owner]
	if number < 1 || number > len(list) {
		return types.Container{}, notFound("lookup", "owner %s has no container #%d", owner, number)
	}
	return list[number-1].Copy(), nil
}

// Number returns the 1-based position of a container in its owner's list.
func (r *Registry) Number(id string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c := r.byId[id]
	if c == nil {
		return 0
	}
	for i, o := range r.owners[c.OwnerId] {
		if o.Id == id {
			return i + 1
		}
	}
	return 0
}

// Owners returns every owner with at least one container, sorted.
func (r *Registry) Owners() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	owners := make([]string, 0, len(r.owners))
	for o := range r.owners {
		owners = append(owners, o)
	}
	sort.Strings(owners)
	return owners
}

// All returns every container, ordered by owner and creation.
func (r *Registry) All() []types.Container {
	out := []types.Container{}
	for _, owner := range r.Owners() {
		out = append(out, r.Get(owner)...)
	}
	return out
}

// SharedWith returns the containers the actor is a grantee of.
func (r *Registry) SharedWith(actor string) []types.Container {
	out := []types.Container{}
	for _, c := range r.All() {
		if c.IsSharedWith(actor) {
			out = append(out, c)
		}
	}
	return out
}

// Share grants the grantee access to the owner's container at number.
func (r *Registry) Share(owner string, number int, grantee string) (types.Container, error) {
	c, err := r.At(owner, number)
	if err != nil {
		return types.Container{}, err
	}
	return r.ShareId(c.Id, grantee)
}

// ShareId grants the grantee access to the container with the given id.
func (r *Registry) ShareId(id, grantee string) (types.Container, error) {
	if grantee == "" {
		return types.Container{}, invalid("share", "a grantee is required")
	}
	return r.Mutate(id, func(c *types.Container) error {
		if grantee == c.OwnerId {
			return invalid("share", "a container can not be shared with its owner")
		}
		if c.IsSharedWith(grantee) {
			return alreadyIn("share", "%s already has access to %s", grantee, c.Id)
		}
		c.SharedWith = append(c.SharedWith, grantee)
		return nil
	})
}

// Revoke removes the grantee's access to the owner's container at number.
func (r *Registry) Revoke(owner string, number int, grantee string) (types.Container, error) {
	c, err := r.At(owner, number)
	if err != nil {
		return types.Container{}, err
	}
	return r.RevokeId(c.Id, grantee)
}

// RevokeId removes the grantee's access to the container with the given id.
func (r *Registry) RevokeId(id, grantee string) (types.Container, error) {
	return r.Mutate(id, func(c *types.Container) error {
		if !c.IsSharedWith(grantee) {
			return notFound("revoke", "%s has no access to %s", grantee, c.Id)
		}
		c.SharedWith = slices.DeleteFunc(c.SharedWith, func(g string) bool { return g == grantee })
		return nil
	})
}

// Admins returns the stored admins, sorted.
func (r *Registry) Admins() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.admins)
}

// IsAdmin reports whether actor is a stored admin.
func (r *Registry) IsAdmin(actor string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, found := slices.BinarySearch(r.admins, actor)
	return found
}

// AddAdmin adds actor to the admin set.
func (r *Registry) AddAdmin(actor string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, found := slices.BinarySearch(r.admins, actor)
	if found {
		return alreadyIn("admin add", "%s is already an admin", actor)
	}
	next := slices.Insert(slices.Clone(r.admins), i, actor)
	if err := r.store.SaveAdmins(next); err != nil {
		return persistErr("admin add", err)
	}
	r.admins = next
	return nil
}

// RemoveAdmin removes actor from the admin set.
func (r *Registry) RemoveAdmin(actor string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, found := slices.BinarySearch(r.admins, actor)
	if !found {
		return notFound("admin remove", "%s is not an admin", actor)
	}
	next := slices.Delete(slices.Clone(r.admins), i, i+1)
	if err := r.store.SaveAdmins(next); err != nil {
		return persistErr("admin remove", err)
	}
	r.admins = next
	return nil
}

// Flush rewrites the whole store from the registry.
func (r *Registry) Flush() error {
	r.mu.RLock()
	containers := make([]types.Container, 0, len(r.byId))
	for _, list := range r.owners {
		for _, c := range list {
			containers = append(containers, c.Copy())
		}
	}
	seqs := make(map[string]int, len(r.nextSeq))
	for k, v := range r.nextSeq {
		seqs[k] = v
	}
	admins := slices.Clone(r.admins)
	r.mu.RUnlock()

	if err := r.store.ReplaceAll(containers, seqs, admins); err != nil {
		return persistErr("flush", err)
	}
	return nil
}

type recordLock struct {
	sync.Mutex
	refs int
}

type recordLocks struct {
	mu sync.Mutex
	m  map[string]*recordLock
}

func (l *recordLocks) lock(id string) func() {
	l.mu.Lock()
	rl := l.m[id]
	if rl == nil {
		rl = &recordLock{}
		l.m[id] = rl
	}
	rl.refs++
	l.mu.Unlock()

	rl.Lock()
	return func() {
		rl.Unlock()
		l.mu.Lock()
		rl.refs--
		if rl.refs == 0 {
			delete(l.m, id)
		}
		l.mu.Unlock()
	}
}

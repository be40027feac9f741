package container

import (
	"github.com/matzehuels/ndskl/pkg/errors"
)

// Memory is a [Writer] that keeps everything in memory. It applies the same
// naming rules as [FileWriter] and exposes the result as a [File], so a
// conversion can be checked without touching the filesystem.
type Memory struct {
	file   File
	groups map[string]*memGroup
	closed bool
}

// NewMemory returns an empty in-memory container.
func NewMemory() *Memory {
	return &Memory{file: File{Version: Version}, groups: map[string]*memGroup{}}
}

// CreateGroup starts a new group. Group names must be unique.
func (m *Memory) CreateGroup(name string) (Group, error) {
	if m.closed {
		return nil, errors.New(errors.ErrCodeWriteFailure, "write to closed container")
	}
	if err := validName(name); err != nil {
		return nil, errors.Wrap(errors.ErrCodeWriteFailure, err, "group")
	}
	if _, ok := m.groups[name]; ok {
		return nil, errors.New(errors.ErrCodeWriteFailure, "group %q already exists", name)
	}
	n := &Node{Name: name}
	m.file.Groups = append(m.file.Groups, n)
	g := &memGroup{m: m, node: n}
	m.groups[name] = g
	return g, nil
}

// Close marks the container as complete. Later writes fail.
func (m *Memory) Close() error {
	m.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (m *Memory) Closed() bool { return m.closed }

// File returns the recorded content.
func (m *Memory) File() *File { return &m.file }

type memGroup struct {
	m    *Memory
	node *Node
}

func (g *memGroup) SetAttr(name string, a Array) error {
	if err := g.check(kindAttr, g.node.Attrs, name, a); err != nil {
		return err
	}
	g.node.Attrs = append(g.node.Attrs, Entry{Name: name, Value: a})
	return nil
}

func (g *memGroup) CreateDataset(name string, a Array) error {
	if err := g.check(kindDataset, g.node.Datasets, name, a); err != nil {
		return err
	}
	g.node.Datasets = append(g.node.Datasets, Entry{Name: name, Value: a})
	return nil
}

func (g *memGroup) check(kind recordKind, existing []Entry, name string, a Array) error {
	if g.m.closed {
		return errors.New(errors.ErrCodeWriteFailure, "write to closed container")
	}
	if err := validName(name); err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailure, err, "%s/%s", g.node.Name, kind)
	}
	for _, e := range existing {
		if e.Name == name {
			return errors.New(errors.ErrCodeWriteFailure, "%s %s/%s already exists", kind, g.node.Name, name)
		}
	}
	if err := a.Validate(); err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailure, err, "%s %s/%s", kind, g.node.Name, name)
	}
	return nil
}

var _ Writer = (*Memory)(nil)

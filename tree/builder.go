package tree

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/aarsakian/DiskTree/FS/NTFS/MFT"
	MFTAttributes "github.com/aarsakian/DiskTree/FS/NTFS/MFT/attributes"
	"github.com/aarsakian/DiskTree/logger"
	"github.com/pkg/errors"
)

// DirectoryReader resolves the root directory, the index values of directories and file references.
type DirectoryReader interface {
	RootEntry() (*MFT.Record, error)
	ReadDirectoryEntries(*MFT.Record) (MFTAttributes.IndexEntries, error)
	GetRecord(uint64, uint16) (*MFT.Record, error)
}

type Node struct {
	Record   *MFT.Record
	Name     string
	Err      error // set when the directory could not be listed
	dosName  bool
	parent   *Node
	children []*Node
}

type Tree struct {
	root  *Node
	nodes int
}

func (node *Node) GetParent() *Node {
	return node.parent
}

func (node *Node) GetChildren() []*Node {
	return node.children
}

func (node *Node) IsFolder() bool {
	return node.Record.IsFolder()
}

func (node *Node) GetPath() string {
	var names []string
	for current := node; current != nil && current.parent != nil; current = current.parent {
		names = append(names, current.Name)
	}
	slices.Reverse(names)
	return "/" + strings.Join(names, "/")
}

func (t Tree) GetRoot() *Node {
	return t.root
}

func (t Tree) Len() int {
	return t.nodes
}

// Build lists the directories reachable from the root. Each directory is expanded
// once, entries indexed under a long and a DOS name appear once under the long name
// and references to reallocated entries are skipped.
func (t *Tree) Build(dirReader DirectoryReader) error {
	rootRecord, err := dirReader.RootEntry()
	if err != nil {
		return err
	}
	t.root = &Node{Record: rootRecord}
	t.nodes = 1

	visited := map[int]bool{rootRecord.Index: true}
	pending := []*Node{t.root}
	for len(pending) > 0 {
		node := pending[0]
		pending = pending[1:]

		idxEntries, err := dirReader.ReadDirectoryEntries(node.Record)
		if err != nil {
			if node == t.root {
				return errors.Wrap(err, "listing root directory")
			}
			logger.FSLogger.Warning(fmt.Sprintf("listing %s: %s", node.GetPath(), err))
			node.Err = err
			continue
		}
		t.addChildren(node, idxEntries, dirReader)

		for _, child := range node.children {
			if !child.IsFolder() || visited[child.Record.Index] {
				continue
			}
			visited[child.Record.Index] = true
			pending = append(pending, child)
		}
	}

	msg := fmt.Sprintf("Built tree of %d entries", t.nodes)
	logger.FSLogger.Info(msg)
	return nil
}

func (t *Tree) addChildren(node *Node, idxEntries MFTAttributes.IndexEntries, dirReader DirectoryReader) {
	seen := map[uint64]*Node{}
	for _, idxEntry := range idxEntries {
		if idxEntry.Fnattr == nil || idxEntry.ParRef == uint64(node.Record.Index) {
			continue
		}
		if child, ok := seen[idxEntry.ParRef]; ok {
			if child.dosName && !idxEntry.Fnattr.IsDosOnly() {
				child.Name = idxEntry.Fnattr.Fname
				child.dosName = false
			}
			continue
		}

		record, err := dirReader.GetRecord(idxEntry.ParRef, idxEntry.ParSeq)
		if err != nil {
			logger.FSLogger.Warning(fmt.Sprintf("skipped %s in %s: %s", idxEntry.Fnattr.Fname, node.GetPath(), err))
			continue
		}

		child := &Node{Record: record, Name: idxEntry.Fnattr.Fname, dosName: idxEntry.Fnattr.IsDosOnly(), parent: node}
		seen[idxEntry.ParRef] = child
		node.children = append(node.children, child)
		t.nodes++
	}

	slices.SortFunc(node.children, func(childA, childB *Node) int {
		return strings.Compare(strings.ToLower(childA.Name), strings.ToLower(childB.Name))
	})
}

// Find returns the node at the slash separated path, names compare case insensitively.
func (t Tree) Find(path string) (*Node, error) {
	if t.root == nil {
		return nil, errors.New("tree has not been built")
	}
	node := t.root
	for _, name := range strings.Split(path, "/") {
		if name == "" || name == "." {
			continue
		}
		idx := slices.IndexFunc(node.children, func(child *Node) bool {
			return strings.EqualFold(child.Name, name)
		})
		if idx == -1 {
			return nil, errors.Errorf("%s not found in %s", name, node.GetPath())
		}
		node = node.children[idx]
	}
	return node, nil
}

// Walk visits the nodes depth first, parents before their children. Walk stops at the first error of fn.
func (t Tree) Walk(fn func(*Node) error) error {
	if t.root == nil {
		return nil
	}
	return t.root.walk(fn)
}

func (node *Node) walk(fn func(*Node) error) error {
	err := fn(node)
	if err != nil {
		return err
	}
	for _, child := range node.children {
		err = child.walk(fn)
		if err != nil {
			return err
		}
	}
	return nil
}

// Records returns the records of every node, each entry once.
func (t Tree) Records() []*MFT.Record {
	var records []*MFT.Record
	seen := map[int]bool{}
	t.Walk(func(node *Node) error {
		if !seen[node.Record.Index] {
			seen[node.Record.Index] = true
			records = append(records, node.Record)
		}
		return nil
	})
	return records
}

func (t Tree) Show(w io.Writer) {
	if t.root == nil {
		return
	}
	t.root.descend(w, 0)
}

func (node Node) descend(w io.Writer, depth int) {
	name := node.Name
	if node.parent == nil {
		name = "."
	}
	if node.IsFolder() {
		name += "/"
	}
	fmt.Fprintf(w, "%s%s %d\n", strings.Repeat("  ", depth), name, node.Record.Index)
	for _, child := range node.children {
		child.descend(w, depth+1)
	}
}

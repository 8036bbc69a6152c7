package reporter

import (
	"io"
	"path"

	metadata "github.com/aarsakian/DiskTree/FS"
	"github.com/aarsakian/DiskTree/tree"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

type Reporter struct {
	Format         string // text or yaml
	Language       language.Tag
	ShowTimestamps bool
	ShowFileSize   bool
	ShowPath       bool
	ShowTree       bool
}

// Entry is the listing line of one record.
type Entry struct {
	ID        int    `yaml:"id"`
	Sequence  int    `yaml:"seq"`
	Name      string `yaml:"name"`
	Path      string `yaml:"path,omitempty"`
	Folder    bool   `yaml:"folder"`
	Deleted   bool   `yaml:"deleted"`
	Size      int64  `yaml:"size,omitempty"`
	Allocated int64  `yaml:"allocated,omitempty"`
	Accessed  string `yaml:"accessed,omitempty"`
	Created   string `yaml:"created,omitempty"`
	Modified  string `yaml:"modified,omitempty"`
	Changed   string `yaml:"mft_modified,omitempty"`
}

func (rp Reporter) newEntry(record metadata.Record) Entry {
	entry := Entry{ID: record.GetID(), Sequence: record.GetSequence(), Name: record.GetFname(),
		Folder: record.IsFolder(), Deleted: record.IsDeleted()}
	if rp.ShowPath {
		entry.Path = path.Join(record.GetFullPath(), record.GetFname())
	}
	if rp.ShowFileSize {
		entry.Size = record.GetLogicalFileSize()
		entry.Allocated = record.GetPhysicalSize()
	}
	if rp.ShowTimestamps {
		entry.Accessed, entry.Created, entry.Modified, entry.Changed = record.GetTimestamps()
	}
	return entry
}

func (rp Reporter) printer() *message.Printer {
	if rp.Language == language.Und {
		return message.NewPrinter(language.English)
	}
	return message.NewPrinter(rp.Language)
}

// Show lists the records, entry 0 excluded.
func (rp Reporter) Show(w io.Writer, records []metadata.Record) error {
	var entries []Entry
	for _, record := range records {
		if record.GetID() == 0 {
			continue
		}
		entries = append(entries, rp.newEntry(record))
	}

	if rp.Format == "yaml" {
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		err := encoder.Encode(entries)
		if err != nil {
			return err
		}
		return encoder.Close()
	}

	p := rp.printer()
	for _, entry := range entries {
		kind := "file"
		if entry.Folder {
			kind = "dir"
		}
		status := ""
		if entry.Deleted {
			status = " (deleted)"
		}
		p.Fprintf(w, "%d %s %s%s", entry.ID, kind, entry.Name, status)
		if rp.ShowPath {
			p.Fprintf(w, " %s", entry.Path)
		}
		if rp.ShowFileSize {
			p.Fprintf(w, " logical: %d bytes physical: %d bytes", entry.Size, entry.Allocated)
		}
		if rp.ShowTimestamps {
			p.Fprintf(w, " a %s c %s m %s mftm %s", entry.Accessed, entry.Created, entry.Modified, entry.Changed)
		}
		p.Fprintf(w, "\n")
	}
	return nil
}

func (rp Reporter) ShowDirectoryTree(w io.Writer, recordsTree tree.Tree) {
	if rp.ShowTree {
		recordsTree.Show(w)
	}
}

package attributes

import (
	"github.com/aarsakian/DiskTree/decoder"
	"github.com/aarsakian/DiskTree/errs"
)

// RunList is one data run, Offset is the signed cluster delta from the previous run.
type RunList struct {
	Offset int64
	Length uint64
	Sparse bool
	Next   *RunList
}

// Run is a data run resolved to its absolute logical cluster.
type Run struct {
	LCN    int64
	Length uint64
	Sparse bool
}

// Process decodes the run list stored in data and returns the total clusters it covers.
// A control byte holds the width of the length in its low nibble and the
// width of the offset in its high nibble, zero ends the list.
func (runlist *RunList) Process(data []byte) (uint64, error) {
	d := decoder.New(data)
	current := runlist
	first := true
	var totalLenCl uint64

	for d.Remaining() > 0 {
		control := d.U8()
		if control == 0x00 {
			break
		}
		lengthWidth := int(control & 0x0f)
		offsetWidth := int(control >> 4)
		if lengthWidth == 0 {
			return totalLenCl, errs.NewIntegrityError("data run at %d has zero length width", d.Tell()-1)
		}

		length := d.VarUInt(lengthWidth)
		var offset int64
		if offsetWidth > 0 {
			offset = d.VarInt(offsetWidth)
		}
		if err := d.Err(); err != nil {
			return totalLenCl, err
		}

		if !first {
			current.Next = new(RunList)
			current = current.Next
		}
		first = false
		current.Offset = offset
		current.Length = length
		current.Sparse = offsetWidth == 0
		totalLenCl += length
	}
	return totalLenCl, nil
}

// Runs resolves the deltas of the list into absolute clusters, sparse runs keep the previous base.
// Empty runs are dropped but their delta still moves the base.
func (runlist *RunList) Runs() []Run {
	var runs []Run
	lcn := int64(0)
	for run := runlist; run != nil; run = run.Next {
		if !run.Sparse {
			lcn += run.Offset
		}
		if run.Length == 0 {
			continue
		}
		if run.Sparse {
			runs = append(runs, Run{Length: run.Length, Sparse: true})
			continue
		}
		runs = append(runs, Run{LCN: lcn, Length: run.Length})
	}
	return runs
}

func (runlist *RunList) NofFragments() int {
	return len(runlist.Runs())
}

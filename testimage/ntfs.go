package testimage

import (
	"encoding/binary"
	"fmt"
	"sort"

	"golang.org/x/text/encoding/unicode"
)

const (
	MFTEntrySize  = 1024
	IndexNodeSize = 4096
	RootEntry     = 5

	// 2020-09-13T12:26:40Z
	Stamp uint64 = 132444736000000000

	attrStdInfo    uint32 = 0x10
	attrFileName   uint32 = 0x30
	attrVolumeName uint32 = 0x60
	attrVolumeInfo uint32 = 0x70
	attrData       uint32 = 0x80
	attrIndexRoot  uint32 = 0x90
	attrIndexAlloc uint32 = 0xa0
	attrBitmap     uint32 = 0xb0

	dirFlag = 0x10000000
)

func align8(n int) int {
	return (n + 7) &^ 7
}

func utf16le(s string) []byte {
	b, _ := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder().Bytes([]byte(s))
	return b
}

// Ref packs an MFT entry and its sequence number into a file reference.
func Ref(entry uint64, seq uint16) uint64 {
	return entry&0x0000ffffffffffff | uint64(seq)<<48
}

// ResidentAttr encodes an attribute record holding content inline.
func ResidentAttr(attrType uint32, name string, id uint16, content []byte) []byte {
	nameb := utf16le(name)
	contentOffset := align8(24 + len(nameb))
	length := align8(contentOffset + len(content))
	attr := make([]byte, length)
	binary.LittleEndian.PutUint32(attr[0:], attrType)
	binary.LittleEndian.PutUint32(attr[4:], uint32(length))
	attr[8] = 0
	attr[9] = uint8(len(nameb) / 2)
	binary.LittleEndian.PutUint16(attr[10:], 24)
	binary.LittleEndian.PutUint16(attr[14:], id)
	binary.LittleEndian.PutUint32(attr[16:], uint32(len(content)))
	binary.LittleEndian.PutUint16(attr[20:], uint16(contentOffset))
	copy(attr[24:], nameb)
	copy(attr[contentOffset:], content)
	return attr
}

// NonResident describes an attribute whose content lives in clusters.
type NonResident struct {
	Type      uint32
	Name      string
	ID        uint16
	Flags     uint16
	Runs      []Run
	LastVCN   uint64
	Allocated uint64
	DataSize  uint64
	ValidSize uint64
}

func NonResidentAttr(nonResident NonResident) []byte {
	nameb := utf16le(nonResident.Name)
	runs := EncodeRuns(nonResident.Runs)
	runsOffset := align8(64 + len(nameb))
	length := align8(runsOffset + len(runs))
	attr := make([]byte, length)
	binary.LittleEndian.PutUint32(attr[0:], nonResident.Type)
	binary.LittleEndian.PutUint32(attr[4:], uint32(length))
	attr[8] = 1
	attr[9] = uint8(len(nameb) / 2)
	binary.LittleEndian.PutUint16(attr[10:], 64)
	binary.LittleEndian.PutUint16(attr[12:], nonResident.Flags)
	binary.LittleEndian.PutUint16(attr[14:], nonResident.ID)
	binary.LittleEndian.PutUint64(attr[16:], 0)
	binary.LittleEndian.PutUint64(attr[24:], nonResident.LastVCN)
	binary.LittleEndian.PutUint16(attr[32:], uint16(runsOffset))
	binary.LittleEndian.PutUint64(attr[40:], nonResident.Allocated)
	binary.LittleEndian.PutUint64(attr[48:], nonResident.DataSize)
	binary.LittleEndian.PutUint64(attr[56:], nonResident.ValidSize)
	copy(attr[64:], nameb)
	copy(attr[runsOffset:], runs)
	return attr
}

// Run is a data run at an absolute cluster.
type Run struct {
	LCN    int64
	Length uint64
	Sparse bool
}

func unsignedWidth(v uint64) int {
	width := 1
	for width < 8 && v >= 1<<(8*uint(width)) {
		width++
	}
	return width
}

func signedWidth(v int64) int {
	width := 1
	for width < 8 {
		limit := int64(1) << (8*uint(width) - 1)
		if v >= -limit && v < limit {
			break
		}
		width++
	}
	return width
}

func putVar(b []byte, v uint64, width int) {
	for idx := 0; idx < width; idx++ {
		b[idx] = byte(v >> (8 * uint(idx)))
	}
}

// EncodeRuns writes runs as length/delta pairs followed by the terminator.
func EncodeRuns(runs []Run) []byte {
	var encoded []byte
	prev := int64(0)
	for _, run := range runs {
		lengthWidth := unsignedWidth(run.Length)
		if run.Sparse {
			b := make([]byte, 1+lengthWidth)
			b[0] = byte(lengthWidth)
			putVar(b[1:], run.Length, lengthWidth)
			encoded = append(encoded, b...)
			continue
		}
		delta := run.LCN - prev
		offsetWidth := signedWidth(delta)
		b := make([]byte, 1+lengthWidth+offsetWidth)
		b[0] = byte(offsetWidth<<4 | lengthWidth)
		putVar(b[1:], run.Length, lengthWidth)
		putVar(b[1+lengthWidth:], uint64(delta), offsetWidth)
		encoded = append(encoded, b...)
		prev = run.LCN
	}
	return append(encoded, 0x00)
}

// FileName encodes a FILE_NAME payload.
func FileName(parent uint64, parentSeq uint16, name string, namespace uint8, dir bool, size uint64) []byte {
	nameb := utf16le(name)
	fn := make([]byte, 66+len(nameb))
	binary.LittleEndian.PutUint64(fn[0:], Ref(parent, parentSeq))
	for idx := 0; idx < 4; idx++ {
		binary.LittleEndian.PutUint64(fn[8+8*idx:], Stamp)
	}
	binary.LittleEndian.PutUint64(fn[40:], uint64(align8(int(size))))
	binary.LittleEndian.PutUint64(fn[48:], size)
	if dir {
		binary.LittleEndian.PutUint32(fn[56:], dirFlag)
	}
	fn[64] = uint8(len(nameb) / 2)
	fn[65] = namespace
	copy(fn[66:], nameb)
	return fn
}

func StandardInformation(fileAttributes uint32) []byte {
	si := make([]byte, 72)
	for idx := 0; idx < 4; idx++ {
		binary.LittleEndian.PutUint64(si[8*idx:], Stamp)
	}
	binary.LittleEndian.PutUint32(si[32:], fileAttributes)
	return si
}

// IndexValue encodes a directory index value keyed by a FILE_NAME payload.
func IndexValue(ref uint64, key []byte, child bool, childVCN uint64) []byte {
	length := align8(16 + len(key))
	flags := uint32(0)
	if child {
		length += 8
		flags |= 0x01
	}
	value := make([]byte, length)
	binary.LittleEndian.PutUint64(value[0:], ref)
	binary.LittleEndian.PutUint16(value[8:], uint16(length))
	binary.LittleEndian.PutUint16(value[10:], uint16(len(key)))
	binary.LittleEndian.PutUint32(value[12:], flags)
	copy(value[16:], key)
	if child {
		binary.LittleEndian.PutUint64(value[length-8:], childVCN)
	}
	return value
}

// LastIndexValue closes a node, optionally pointing to the child node at childVCN.
func LastIndexValue(child bool, childVCN uint64) []byte {
	value := IndexValue(0, nil, child, childVCN)
	flags := binary.LittleEndian.Uint32(value[12:]) | 0x02
	binary.LittleEndian.PutUint32(value[12:], flags)
	return value
}

// IndexRoot encodes the INDEX_ROOT payload of a file name index.
func IndexRoot(values []byte, hasChildren bool) []byte {
	root := make([]byte, 32+len(values))
	binary.LittleEndian.PutUint32(root[0:], attrFileName)
	binary.LittleEndian.PutUint32(root[4:], 1)
	binary.LittleEndian.PutUint32(root[8:], IndexNodeSize)
	root[12] = 1
	binary.LittleEndian.PutUint32(root[16:], 16)
	binary.LittleEndian.PutUint32(root[20:], uint32(16+len(values)))
	binary.LittleEndian.PutUint32(root[24:], uint32(16+len(values)))
	if hasChildren {
		binary.LittleEndian.PutUint32(root[28:], 1)
	}
	copy(root[32:], values)
	return root
}

// protect writes the update sequence array at usaOffset and stamps every sector.
func protect(block []byte, usaOffset int, usn uint16) {
	nofSectors := len(block) / 512
	binary.LittleEndian.PutUint16(block[4:], uint16(usaOffset))
	binary.LittleEndian.PutUint16(block[6:], uint16(nofSectors+1))
	binary.LittleEndian.PutUint16(block[usaOffset:], usn)
	for sector := 1; sector <= nofSectors; sector++ {
		pos := sector*512 - 2
		copy(block[usaOffset+2*sector:usaOffset+2*sector+2], block[pos:pos+2])
		binary.LittleEndian.PutUint16(block[pos:], usn)
	}
}

// IndexNode encodes an INDX node of IndexNodeSize bytes with its fixups applied.
func IndexNode(vcn uint64, values []byte) []byte {
	node := make([]byte, IndexNodeSize)
	copy(node[0:], "INDX")
	binary.LittleEndian.PutUint64(node[16:], vcn)
	usaOffset := 40
	valuesOffset := align8(usaOffset+2*(IndexNodeSize/512+1)) - 24
	binary.LittleEndian.PutUint32(node[24:], uint32(valuesOffset))
	binary.LittleEndian.PutUint32(node[28:], uint32(valuesOffset+len(values)))
	binary.LittleEndian.PutUint32(node[32:], IndexNodeSize-24)
	if 24+valuesOffset+len(values) > IndexNodeSize {
		panic(fmt.Sprintf("index node %d: %d bytes of values do not fit", vcn, len(values)))
	}
	copy(node[24+valuesOffset:], values)
	protect(node, usaOffset, 0x0003)
	return node
}

// entryFits reports whether the attributes and the end marker fit in one entry.
func entryFits(attrs ...[]byte) bool {
	pos := 56
	for _, attr := range attrs {
		pos += len(attr)
	}
	return pos+8 <= MFTEntrySize
}

// MFTEntry encodes an entry of MFTEntrySize bytes with its fixups applied.
// It panics when the attributes overflow the entry.
func MFTEntry(entry uint32, seq uint16, flags uint16, attrs ...[]byte) []byte {
	if !entryFits(attrs...) {
		panic(fmt.Sprintf("entry %d: attributes overflow %d bytes", entry, MFTEntrySize))
	}
	record := make([]byte, MFTEntrySize)
	copy(record[0:], "FILE")
	binary.LittleEndian.PutUint16(record[16:], seq)
	binary.LittleEndian.PutUint16(record[18:], 1)
	binary.LittleEndian.PutUint16(record[20:], 56)
	binary.LittleEndian.PutUint16(record[22:], flags)
	pos := 56
	for _, attr := range attrs {
		copy(record[pos:], attr)
		pos += len(attr)
	}
	binary.LittleEndian.PutUint32(record[pos:], 0xffffffff)
	binary.LittleEndian.PutUint32(record[24:], uint32(pos+8))
	binary.LittleEndian.PutUint32(record[28:], MFTEntrySize)
	binary.LittleEndian.PutUint16(record[40:], uint16(len(attrs)+1))
	binary.LittleEndian.PutUint32(record[44:], entry)
	protect(record, 48, 0x0001)
	return record
}

// BootSector encodes an NTFS boot sector with 1024 byte MFT entries.
func BootSector(sectorsPerCluster uint8, totalSectors uint64, mftCluster uint64) []byte {
	boot := make([]byte, SectorSize)
	copy(boot[0:], []byte{0xeb, 0x52, 0x90})
	copy(boot[3:], "NTFS    ")
	binary.LittleEndian.PutUint16(boot[11:], SectorSize)
	boot[13] = sectorsPerCluster
	boot[21] = 0xf8
	binary.LittleEndian.PutUint16(boot[24:], 63)
	binary.LittleEndian.PutUint16(boot[26:], 255)
	binary.LittleEndian.PutUint64(boot[40:], totalSectors)
	binary.LittleEndian.PutUint64(boot[48:], mftCluster)
	binary.LittleEndian.PutUint64(boot[56:], 2)
	boot[64] = 0xf6 // -10, 2^10 bytes per entry
	boot[68] = 1
	binary.LittleEndian.PutUint64(boot[72:], 0x1c2a3b4c5d6e7f80)
	boot[510] = 0x55
	boot[511] = 0xaa
	return boot
}

// NTFSFile is a file or directory of a synthetic volume.
type NTFSFile struct {
	Entry      uint32 // 0 assigns the next free entry from 16
	Parent     uint32 // defaults to the root
	Name       string
	DosName    string
	Dir        bool
	Content    []byte
	Resident   bool
	ValidSize  int // bytes of Content that were written, 0 means all
	SparseFrom int // first cluster of Content left unallocated
	SparseLen  int
	Fragmented bool // the second half of the content sits in clusters before the first half
	Deleted    bool
	Seq        uint16
	// children of a directory go to an INDX node instead of the index root
	IndexInAllocation bool
}

type NTFSSpec struct {
	SectorsPerCluster uint8
	Label             string
	MFTEntries        int
	FragmentMFT       bool
	FreeClusters      int
	Files             []NTFSFile
}

type volumeBuilder struct {
	spec        NTFSSpec
	clusterSize int
	next        int64
	image       map[int64][]byte
	used        map[int64]bool
}

func (vb *volumeBuilder) allocate(count int) int64 {
	start := vb.next
	for idx := int64(0); idx < int64(count); idx++ {
		vb.used[start+idx] = true
	}
	vb.next += int64(count)
	return start
}

func (vb *volumeBuilder) write(lcn int64, data []byte) {
	for pos := 0; pos < len(data); pos += vb.clusterSize {
		end := pos + vb.clusterSize
		if end > len(data) {
			end = len(data)
		}
		cluster := make([]byte, vb.clusterSize)
		copy(cluster, data[pos:end])
		vb.image[lcn+int64(pos/vb.clusterSize)] = cluster
	}
}

func (vb *volumeBuilder) clustersFor(length int) int {
	return (length + vb.clusterSize - 1) / vb.clusterSize
}

// placeContent stores content in fresh clusters and returns the runs describing it.
func (vb *volumeBuilder) placeContent(file NTFSFile) []Run {
	nofClusters := vb.clustersFor(len(file.Content))
	chunk := func(from, to int) []byte {
		start := from * vb.clusterSize
		end := to * vb.clusterSize
		if end > len(file.Content) {
			end = len(file.Content)
		}
		return file.Content[start:end]
	}

	if file.Fragmented && nofClusters > 1 {
		half := nofClusters / 2
		second := vb.allocate(nofClusters - half)
		vb.allocate(1) // gap
		first := vb.allocate(half)
		vb.write(first, chunk(0, half))
		vb.write(second, chunk(half, nofClusters))
		return []Run{{LCN: first, Length: uint64(half)}, {LCN: second, Length: uint64(nofClusters - half)}}
	}

	var runs []Run
	if file.SparseLen > 0 {
		if file.SparseFrom > 0 {
			lcn := vb.allocate(file.SparseFrom)
			vb.write(lcn, chunk(0, file.SparseFrom))
			runs = append(runs, Run{LCN: lcn, Length: uint64(file.SparseFrom)})
		}
		runs = append(runs, Run{Length: uint64(file.SparseLen), Sparse: true})
		rest := file.SparseFrom + file.SparseLen
		if rest < nofClusters {
			lcn := vb.allocate(nofClusters - rest)
			vb.write(lcn, chunk(rest, nofClusters))
			runs = append(runs, Run{LCN: lcn, Length: uint64(nofClusters - rest)})
		}
		return runs
	}

	lcn := vb.allocate(nofClusters)
	vb.write(lcn, file.Content)
	return []Run{{LCN: lcn, Length: uint64(nofClusters)}}
}

func (vb *volumeBuilder) dataAttr(name string, runs []Run, dataSize, validSize int) []byte {
	clusters := uint64(0)
	for _, run := range runs {
		clusters += run.Length
	}
	lastVCN := uint64(0)
	if clusters > 0 {
		lastVCN = clusters - 1
	}
	return NonResidentAttr(NonResident{
		Type: attrData, Name: name, ID: 3, Runs: runs, LastVCN: lastVCN,
		Allocated: clusters * uint64(vb.clusterSize),
		DataSize:  uint64(dataSize), ValidSize: uint64(validSize),
	})
}

func fileNameAttrs(file NTFSFile, parentSeq uint16) [][]byte {
	size := uint64(len(file.Content))
	if file.DosName == "" {
		return [][]byte{ResidentAttr(attrFileName, "", 2, FileName(uint64(file.Parent), parentSeq, file.Name, 3, file.Dir, size))}
	}
	return [][]byte{
		ResidentAttr(attrFileName, "", 2, FileName(uint64(file.Parent), parentSeq, file.Name, 1, file.Dir, size)),
		ResidentAttr(attrFileName, "", 4, FileName(uint64(file.Parent), parentSeq, file.DosName, 2, file.Dir, size)),
	}
}

// indexAttrs keeps the index resident when it fits next to attrs, otherwise
// the entries move to an INDX node.
func (vb *volumeBuilder) indexAttrs(dir NTFSFile, children []NTFSFile, seqs map[uint32]uint16, attrs [][]byte) [][]byte {
	var values []byte
	for _, child := range children {
		size := uint64(len(child.Content))
		if child.DosName == "" {
			values = append(values, IndexValue(Ref(uint64(child.Entry), child.Seq),
				FileName(uint64(dir.Entry), seqs[dir.Entry], child.Name, 3, child.Dir, size), false, 0)...)
			continue
		}
		values = append(values, IndexValue(Ref(uint64(child.Entry), child.Seq),
			FileName(uint64(dir.Entry), seqs[dir.Entry], child.Name, 1, child.Dir, size), false, 0)...)
		values = append(values, IndexValue(Ref(uint64(child.Entry), child.Seq),
			FileName(uint64(dir.Entry), seqs[dir.Entry], child.DosName, 2, child.Dir, size), false, 0)...)
	}

	values = append(values, LastIndexValue(false, 0)...)
	if !dir.IndexInAllocation {
		resident := ResidentAttr(attrIndexRoot, "$I30", 5, IndexRoot(values, false))
		if entryFits(append(attrs[:len(attrs):len(attrs)], resident)...) {
			return [][]byte{resident}
		}
	}

	nodes := make([]byte, 2*IndexNodeSize)
	copy(nodes, IndexNode(0, values))
	// the second slot is free, its content is not an index node
	for idx := IndexNodeSize; idx < len(nodes); idx++ {
		nodes[idx] = 0xee
	}
	nofClusters := vb.clustersFor(len(nodes))
	lcn := vb.allocate(nofClusters)
	vb.write(lcn, nodes)

	rootValues := LastIndexValue(true, 0)
	return [][]byte{
		ResidentAttr(attrIndexRoot, "$I30", 5, IndexRoot(rootValues, true)),
		NonResidentAttr(NonResident{
			Type: attrIndexAlloc, Name: "$I30", ID: 6,
			Runs:      []Run{{LCN: lcn, Length: uint64(nofClusters)}},
			LastVCN:   uint64(nofClusters - 1),
			Allocated: uint64(nofClusters * vb.clusterSize),
			DataSize:  uint64(len(nodes)), ValidSize: uint64(len(nodes)),
		}),
		ResidentAttr(attrBitmap, "$I30", 7, []byte{0x01, 0, 0, 0, 0, 0, 0, 0}),
	}
}

// BuildNTFS lays out a volume: boot sector, MFT, $Volume, root directory, $Bitmap and the given files.
func BuildNTFS(spec NTFSSpec) []byte {
	if spec.SectorsPerCluster == 0 {
		spec.SectorsPerCluster = 8
	}
	if spec.MFTEntries == 0 {
		spec.MFTEntries = 64
	}
	if spec.FreeClusters == 0 {
		spec.FreeClusters = 16
	}
	vb := &volumeBuilder{
		spec:        spec,
		clusterSize: int(spec.SectorsPerCluster) * SectorSize,
		image:       map[int64][]byte{},
		used:        map[int64]bool{},
	}
	vb.allocate(4) // boot sector and reserved clusters

	mftClusters := vb.clustersFor(spec.MFTEntries * MFTEntrySize)
	var mftRuns []Run
	if spec.FragmentMFT && mftClusters > 1 {
		half := mftClusters / 2
		first := vb.allocate(half)
		vb.allocate(2)
		second := vb.allocate(mftClusters - half)
		mftRuns = []Run{{LCN: first, Length: uint64(half)}, {LCN: second, Length: uint64(mftClusters - half)}}
	} else {
		mftRuns = []Run{{LCN: vb.allocate(mftClusters), Length: uint64(mftClusters)}}
	}

	files := append([]NTFSFile(nil), spec.Files...)
	nextEntry := uint32(16)
	taken := map[uint32]bool{}
	for _, file := range files {
		if file.Entry != 0 {
			taken[file.Entry] = true
		}
	}
	for idx := range files {
		if files[idx].Entry == 0 {
			for taken[nextEntry] {
				nextEntry++
			}
			files[idx].Entry = nextEntry
			taken[nextEntry] = true
		}
		if files[idx].Parent == 0 {
			files[idx].Parent = RootEntry
		}
		if files[idx].Seq == 0 {
			files[idx].Seq = 1
		}
	}
	root := NTFSFile{Entry: RootEntry, Parent: RootEntry, Name: ".", Dir: true, Seq: RootEntry}
	for _, file := range files {
		if file.Entry == RootEntry {
			root.IndexInAllocation = file.IndexInAllocation
		}
	}
	system := []NTFSFile{
		{Entry: 0, Parent: RootEntry, Name: "$MFT", Seq: 1},
		{Entry: 3, Parent: RootEntry, Name: "$Volume", Seq: 3},
		{Entry: 6, Parent: RootEntry, Name: "$Bitmap", Seq: 6},
	}
	var all []NTFSFile
	all = append(all, system...)
	all = append(all, root)
	for _, file := range files {
		if file.Entry != RootEntry {
			all = append(all, file)
		}
	}
	seqs := map[uint32]uint16{}
	for _, file := range all {
		seqs[file.Entry] = file.Seq
	}

	entries := map[uint32][]byte{}
	for _, file := range all {
		if file.Entry == 0 || file.Entry == 6 || file.Entry == 3 {
			continue
		}
		attrs := [][]byte{ResidentAttr(attrStdInfo, "", 0, StandardInformation(0x20))}
		attrs = append(attrs, fileNameAttrs(file, seqs[file.Parent])...)
		flags := uint16(0x01)
		if file.Dir {
			flags |= 0x02
			var children []NTFSFile
			for _, child := range all {
				if child.Parent == file.Entry && child.Entry != file.Entry && !child.Deleted {
					children = append(children, child)
				}
			}
			sort.Slice(children, func(i, j int) bool { return children[i].Entry < children[j].Entry })
			attrs = append(attrs, vb.indexAttrs(file, children, seqs, attrs)...)
		} else if file.Resident {
			attrs = append(attrs, ResidentAttr(attrData, "", 3, file.Content))
		} else {
			validSize := file.ValidSize
			if validSize == 0 {
				validSize = len(file.Content)
			}
			attrs = append(attrs, vb.dataAttr("", vb.placeContent(file), len(file.Content), validSize))
		}
		if file.Deleted {
			flags &^= 0x01
		}
		entries[file.Entry] = MFTEntry(file.Entry, file.Seq, flags, attrs...)
	}

	label := ResidentAttr(attrVolumeName, "", 4, utf16le(spec.Label))
	volInfo := make([]byte, 12)
	volInfo[8] = 3
	volInfo[9] = 1
	entries[3] = MFTEntry(3, 3, 0x01,
		ResidentAttr(attrStdInfo, "", 0, StandardInformation(0x06)),
		ResidentAttr(attrFileName, "", 2, FileName(RootEntry, RootEntry, "$Volume", 3, false, 0)),
		label,
		ResidentAttr(attrVolumeInfo, "", 5, volInfo))

	bitmapLCN := vb.allocate(1)
	totalClusters := vb.next + int64(spec.FreeClusters)
	bitmap := make([]byte, (totalClusters+7)/8)
	for lcn := range vb.used {
		bitmap[lcn/8] |= 1 << uint(lcn%8)
	}
	vb.write(bitmapLCN, bitmap)
	entries[6] = MFTEntry(6, 6, 0x01,
		ResidentAttr(attrStdInfo, "", 0, StandardInformation(0x06)),
		ResidentAttr(attrFileName, "", 2, FileName(RootEntry, RootEntry, "$Bitmap", 3, false, uint64(len(bitmap)))),
		vb.dataAttr("", []Run{{LCN: bitmapLCN, Length: 1}}, len(bitmap), len(bitmap)))

	mftSize := spec.MFTEntries * MFTEntrySize
	entries[0] = MFTEntry(0, 1, 0x01,
		ResidentAttr(attrStdInfo, "", 0, StandardInformation(0x06)),
		ResidentAttr(attrFileName, "", 2, FileName(RootEntry, RootEntry, "$MFT", 3, false, uint64(mftSize))),
		vb.dataAttr("", mftRuns, mftSize, mftSize))

	mft := make([]byte, mftClusters*vb.clusterSize)
	for entry, record := range entries {
		copy(mft[int(entry)*MFTEntrySize:], record)
	}
	pos := 0
	for _, run := range mftRuns {
		length := int(run.Length) * vb.clusterSize
		vb.write(run.LCN, mft[pos:pos+length])
		pos += length
	}

	image := make([]byte, int(totalClusters)*vb.clusterSize)
	for lcn, cluster := range vb.image {
		copy(image[int(lcn)*vb.clusterSize:], cluster)
	}
	copy(image, BootSector(spec.SectorsPerCluster, uint64(totalClusters)*uint64(spec.SectorsPerCluster), uint64(mftRuns[0].LCN)))
	return image
}

package vector

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/hyperjump/vecsearch/internal/models"
)

// EncodeFloat32s encodes a vector as little-endian float32 bytes.
func EncodeFloat32s(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

// DecodeFloat32s decodes bytes produced by EncodeFloat32s.
func DecodeFloat32s(b []byte) ([]float32, error) {
	const size = 4
	if len(b)%size != 0 {
		return nil, fmt.Errorf("vector bytes length %d is not a multiple of %d", len(b), size)
	}
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out, nil
}

// Snapshot layout (little-endian):
//
//	magic "VSIX" | version u16 | metric (u8 len + bytes) | index type (u8 len + bytes)
//	dimension u32 | nlist u32
//	centroid count u32 | centroids (dimension float32 each)
//	list count u32 | per list: entry count u32 | per entry: seq i64, vector
const (
	snapshotMagic   = "VSIX"
	snapshotVersion = uint16(1)
)

var errSnapshot = errors.New("invalid index snapshot")

type snapshotWriter struct {
	buf bytes.Buffer
	dim int
	err error
}

func newSnapshotWriter(p models.IndexParams, dim int) *snapshotWriter {
	w := &snapshotWriter{dim: dim}
	w.buf.WriteString(snapshotMagic)
	w.put(snapshotVersion)
	w.putString(string(p.Metric))
	w.putString(string(p.IndexType))
	w.put(uint32(dim))
	w.put(uint32(p.NList))
	return w
}

func (w *snapshotWriter) put(v any) {
	if w.err != nil {
		return
	}
	w.err = binary.Write(&w.buf, binary.LittleEndian, v)
}

func (w *snapshotWriter) putString(s string) {
	w.put(uint8(len(s)))
	w.buf.WriteString(s)
}

func (w *snapshotWriter) writeCentroids(centroids [][]float32) {
	w.put(uint32(len(centroids)))
	for _, c := range centroids {
		w.buf.Write(EncodeFloat32s(c))
	}
}

func (w *snapshotWriter) writeLists(lists []postingList) {
	w.put(uint32(len(lists)))
	for _, l := range lists {
		w.put(uint32(len(l.seqs)))
		for i, seq := range l.seqs {
			w.put(seq)
			w.buf.Write(EncodeFloat32s(l.vectors[i]))
		}
	}
}

// writeList writes a single unpartitioned list.
func (w *snapshotWriter) writeList(seqs []int64, vectors [][]float32) {
	w.writeCentroids(nil)
	w.writeLists([]postingList{{seqs: seqs, vectors: vectors}})
}

func (w *snapshotWriter) bytes() ([]byte, error) {
	if w.err != nil {
		return nil, fmt.Errorf("encode index snapshot: %w", w.err)
	}
	return w.buf.Bytes(), nil
}

type snapshotReader struct {
	r     *bytes.Reader
	dim   int
	nlist int
}

// newSnapshotReader validates the header against the expected params and dimension.
func newSnapshotReader(data []byte, want models.IndexParams, dim int) (*snapshotReader, error) {
	r := &snapshotReader{r: bytes.NewReader(data), dim: dim}
	magic := make([]byte, len(snapshotMagic))
	if _, err := io.ReadFull(r.r, magic); err != nil || string(magic) != snapshotMagic {
		return nil, fmt.Errorf("%w: bad magic", errSnapshot)
	}
	var version uint16
	if err := r.get(&version); err != nil {
		return nil, err
	}
	if version != snapshotVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", errSnapshot, version)
	}
	metric, err := r.getString()
	if err != nil {
		return nil, err
	}
	indexType, err := r.getString()
	if err != nil {
		return nil, err
	}
	if models.Metric(metric) != want.Metric || models.IndexType(indexType) != want.IndexType {
		return nil, fmt.Errorf("%w: snapshot is %s/%s, index is %s/%s", errSnapshot, metric, indexType, want.Metric, want.IndexType)
	}
	var fileDim, nlist uint32
	if err := r.get(&fileDim); err != nil {
		return nil, err
	}
	if int(fileDim) != dim {
		return nil, fmt.Errorf("%w: snapshot has %d, index expects %d", models.ErrDimensionMismatch, fileDim, dim)
	}
	if err := r.get(&nlist); err != nil {
		return nil, err
	}
	r.nlist = int(nlist)
	return r, nil
}

func (r *snapshotReader) get(v any) error {
	if err := binary.Read(r.r, binary.LittleEndian, v); err != nil {
		return fmt.Errorf("%w: %v", errSnapshot, err)
	}
	return nil
}

func (r *snapshotReader) getString() (string, error) {
	var n uint8
	if err := r.get(&n); err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r.r, b); err != nil {
		return "", fmt.Errorf("%w: %v", errSnapshot, err)
	}
	return string(b), nil
}

func (r *snapshotReader) getVector() ([]float32, error) {
	b := make([]byte, r.dim*4)
	if _, err := io.ReadFull(r.r, b); err != nil {
		return nil, fmt.Errorf("%w: %v", errSnapshot, err)
	}
	return DecodeFloat32s(b)
}

func (r *snapshotReader) readCentroids() ([][]float32, error) {
	var n uint32
	if err := r.get(&n); err != nil {
		return nil, err
	}
	centroids := make([][]float32, 0, n)
	for i := uint32(0); i < n; i++ {
		c, err := r.getVector()
		if err != nil {
			return nil, err
		}
		centroids = append(centroids, c)
	}
	return centroids, nil
}

func (r *snapshotReader) readLists() ([]postingList, error) {
	var n uint32
	if err := r.get(&n); err != nil {
		return nil, err
	}
	lists := make([]postingList, 0, n)
	for i := uint32(0); i < n; i++ {
		var count uint32
		if err := r.get(&count); err != nil {
			return nil, err
		}
		l := postingList{seqs: make([]int64, 0, count), vectors: make([][]float32, 0, count)}
		for j := uint32(0); j < count; j++ {
			var seq int64
			if err := r.get(&seq); err != nil {
				return nil, err
			}
			vec, err := r.getVector()
			if err != nil {
				return nil, err
			}
			l.seqs = append(l.seqs, seq)
			l.vectors = append(l.vectors, vec)
		}
		lists = append(lists, l)
	}
	return lists, nil
}

// readList reads a snapshot written by writeList.
func (r *snapshotReader) readList() ([]int64, [][]float32, error) {
	centroids, err := r.readCentroids()
	if err != nil {
		return nil, nil, err
	}
	if len(centroids) != 0 {
		return nil, nil, fmt.Errorf("%w: unexpected centroids in flat snapshot", errSnapshot)
	}
	lists, err := r.readLists()
	if err != nil {
		return nil, nil, err
	}
	if len(lists) != 1 {
		return nil, nil, fmt.Errorf("%w: flat snapshot has %d lists", errSnapshot, len(lists))
	}
	return lists[0].seqs, lists[0].vectors, nil
}

// SnapshotParams reads the index parameters and dimension from a snapshot header.
func SnapshotParams(data []byte) (models.IndexParams, int, error) {
	r := bytes.NewReader(data)
	magic := make([]byte, len(snapshotMagic))
	if _, err := io.ReadFull(r, magic); err != nil || string(magic) != snapshotMagic {
		return models.IndexParams{}, 0, fmt.Errorf("%w: bad magic", errSnapshot)
	}
	sr := &snapshotReader{r: r}
	var version uint16
	if err := sr.get(&version); err != nil {
		return models.IndexParams{}, 0, err
	}
	metric, err := sr.getString()
	if err != nil {
		return models.IndexParams{}, 0, err
	}
	indexType, err := sr.getString()
	if err != nil {
		return models.IndexParams{}, 0, err
	}
	var dim, nlist uint32
	if err := sr.get(&dim); err != nil {
		return models.IndexParams{}, 0, err
	}
	if err := sr.get(&nlist); err != nil {
		return models.IndexParams{}, 0, err
	}
	return models.IndexParams{Metric: models.Metric(metric), IndexType: models.IndexType(indexType), NList: int(nlist)}, int(dim), nil
}

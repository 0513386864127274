package writer

import (
	"errors"

	tiledb "github.com/TileDB-Inc/TileDB-Go"
	stgpsr "github.com/yuin/stagparser"
)

var ErrArray = errors.New("writer: array error")

// matrixAttr is the single-field schema descriptor every dense matrix
// array in this writer shares: one zstd-compressed int32 attribute named
// "data", built the same way the teacher's CreateAttr/stagparser tag
// convention builds its per-field attributes, just collapsed to one field
// since every array here is a homogeneous numeric matrix rather than a
// struct of heterogeneous sensor fields.
type matrixAttr struct {
	Data int32 `tiledb:"dtype=int32,ftype=attr" filters:"zstd(level=16)"`
}

// createDenseMatrix creates a 2-D dense array at uri with domain
// [0,rows-1] x [0,cols-1] and one "data" attribute, following the
// domain/dimension/schema/array construction sequence in the teacher's
// Attitude.attitude_tiledb_array, generalized from one dimension to two.
func createDenseMatrix(ctx *tiledb.Context, uri string, rows, cols int) error {
	if rows == 0 {
		rows = 1 // TileDB domains cannot have zero-length extent
	}

	domain, err := tiledb.NewDomain(ctx)
	if err != nil {
		return errors.Join(ErrArray, err)
	}
	defer domain.Free()

	rowDim, err := tiledb.NewDimension(ctx, "row", tiledb.TILEDB_INT32, []int32{0, int32(rows - 1)}, int32(rows))
	if err != nil {
		return errors.Join(ErrArray, err)
	}
	defer rowDim.Free()

	colDim, err := tiledb.NewDimension(ctx, "col", tiledb.TILEDB_INT32, []int32{0, int32(cols - 1)}, int32(cols))
	if err != nil {
		return errors.Join(ErrArray, err)
	}
	defer colDim.Free()

	if err := domain.AddDimensions(rowDim, colDim); err != nil {
		return errors.Join(ErrArray, err)
	}

	schema, err := tiledb.NewArraySchema(ctx, tiledb.TILEDB_DENSE)
	if err != nil {
		return errors.Join(ErrArray, err)
	}
	defer schema.Free()

	if err := schema.SetDomain(domain); err != nil {
		return errors.Join(ErrArray, err)
	}
	if err := schema.SetCellOrder(tiledb.TILEDB_ROW_MAJOR); err != nil {
		return errors.Join(ErrArray, err)
	}
	if err := schema.SetTileOrder(tiledb.TILEDB_ROW_MAJOR); err != nil {
		return errors.Join(ErrArray, err)
	}

	filtDefs, _ := stgpsr.ParseStruct(&matrixAttr{}, "filters")
	tdbDefs, _ := stgpsr.ParseStruct(&matrixAttr{}, "tiledb")
	tdbFieldDefs := make(map[string]stgpsr.Definition)
	for _, d := range tdbDefs["Data"] {
		tdbFieldDefs[d.Name()] = d
	}
	if err := CreateAttr("data", filtDefs["Data"], tdbFieldDefs, schema, ctx); err != nil {
		return err
	}

	array, err := tiledb.NewArray(ctx, uri)
	if err != nil {
		return errors.Join(ErrArray, err)
	}
	defer array.Free()

	if err := array.Create(schema); err != nil {
		return errors.Join(ErrArray, err)
	}
	return nil
}

// writeDenseMatrix opens the array at uri, writes flat (row-major, length
// rows*cols) as its "data" attribute over the full subarray, and closes
// it, mirroring the query/subarray/submit/finalize/close sequence in the
// teacher's Attitude.ToTileDB.
func writeDenseMatrix(ctx *tiledb.Context, uri string, rows, cols int, flat []int32) error {
	if rows == 0 {
		rows = 1
		flat = make([]int32, cols)
	}

	array, err := ArrayOpen(ctx, uri, tiledb.TILEDB_WRITE)
	if err != nil {
		return errors.Join(ErrArray, err)
	}
	defer array.Free()
	defer array.Close()

	query, err := tiledb.NewQuery(ctx, array)
	if err != nil {
		return errors.Join(ErrArray, err)
	}
	defer query.Free()

	if err := query.SetLayout(tiledb.TILEDB_ROW_MAJOR); err != nil {
		return errors.Join(ErrArray, err)
	}
	if _, err := query.SetDataBuffer("data", flat); err != nil {
		return errors.Join(ErrArray, err)
	}

	subarr, err := array.NewSubarray()
	if err != nil {
		return errors.Join(ErrArray, err)
	}
	defer subarr.Free()

	if err := subarr.AddRangeByName("row", tiledb.MakeRange(int32(0), int32(rows-1))); err != nil {
		return errors.Join(ErrArray, err)
	}
	if err := subarr.AddRangeByName("col", tiledb.MakeRange(int32(0), int32(cols-1))); err != nil {
		return errors.Join(ErrArray, err)
	}
	if err := query.SetSubarray(subarr); err != nil {
		return errors.Join(ErrArray, err)
	}

	if err := query.Submit(); err != nil {
		return errors.Join(ErrArray, err)
	}
	return query.Finalize()
}

// create1D and write1D are the vector analogues of createDenseMatrix and
// writeDenseMatrix, used for the scaler arrays (spec.md §4.7's 1-D scalers
// dataset).
func create1D(ctx *tiledb.Context, uri string, n int) error {
	if n == 0 {
		n = 1
	}

	domain, err := tiledb.NewDomain(ctx)
	if err != nil {
		return errors.Join(ErrArray, err)
	}
	defer domain.Free()

	dim, err := tiledb.NewDimension(ctx, "row", tiledb.TILEDB_INT32, []int32{0, int32(n - 1)}, int32(n))
	if err != nil {
		return errors.Join(ErrArray, err)
	}
	defer dim.Free()

	if err := domain.AddDimensions(dim); err != nil {
		return errors.Join(ErrArray, err)
	}

	schema, err := tiledb.NewArraySchema(ctx, tiledb.TILEDB_DENSE)
	if err != nil {
		return errors.Join(ErrArray, err)
	}
	defer schema.Free()

	if err := schema.SetDomain(domain); err != nil {
		return errors.Join(ErrArray, err)
	}
	if err := schema.SetCellOrder(tiledb.TILEDB_ROW_MAJOR); err != nil {
		return errors.Join(ErrArray, err)
	}

	filtDefs, _ := stgpsr.ParseStruct(&matrixAttr{}, "filters")
	tdbDefs, _ := stgpsr.ParseStruct(&matrixAttr{}, "tiledb")
	tdbFieldDefs := make(map[string]stgpsr.Definition)
	for _, d := range tdbDefs["Data"] {
		tdbFieldDefs[d.Name()] = d
	}
	if err := CreateAttr("data", filtDefs["Data"], tdbFieldDefs, schema, ctx); err != nil {
		return err
	}

	array, err := tiledb.NewArray(ctx, uri)
	if err != nil {
		return errors.Join(ErrArray, err)
	}
	defer array.Free()

	return array.Create(schema)
}

func write1D(ctx *tiledb.Context, uri string, data []int32) error {
	n := len(data)
	if n == 0 {
		n = 1
		data = []int32{0}
	}

	array, err := ArrayOpen(ctx, uri, tiledb.TILEDB_WRITE)
	if err != nil {
		return errors.Join(ErrArray, err)
	}
	defer array.Free()
	defer array.Close()

	query, err := tiledb.NewQuery(ctx, array)
	if err != nil {
		return errors.Join(ErrArray, err)
	}
	defer query.Free()

	if err := query.SetLayout(tiledb.TILEDB_ROW_MAJOR); err != nil {
		return errors.Join(ErrArray, err)
	}
	if _, err := query.SetDataBuffer("data", data); err != nil {
		return errors.Join(ErrArray, err)
	}

	subarr, err := array.NewSubarray()
	if err != nil {
		return errors.Join(ErrArray, err)
	}
	defer subarr.Free()

	if err := subarr.AddRangeByName("row", tiledb.MakeRange(int32(0), int32(n-1))); err != nil {
		return errors.Join(ErrArray, err)
	}
	if err := query.SetSubarray(subarr); err != nil {
		return errors.Join(ErrArray, err)
	}

	if err := query.Submit(); err != nil {
		return errors.Join(ErrArray, err)
	}
	return query.Finalize()
}

// Package writer implements the hierarchical output file: a run directory
// holding an "events" group (per-event arrays named event_{n}/get/{keyword}
// for GET trace matrices and event_{n}/frib_physics/{tag} for FRIB physics
// payloads) and a "scalers" group (one array per scaler record, named
// event_{n}), plus a companion YAML manifest.
//
// TileDB groups and arrays stand in for the "HDF5 group/dataset"
// hierarchy spec.md calls for: no HDF5 Go binding appears anywhere in the
// retrieval pack, but the teacher's own cmd/main.go convert_gsf builds
// exactly this shape (a .tiledb group with named array members) to solve
// the same "hierarchical scientific array store" problem, so it is reused
// as the idiomatic stand-in (see DESIGN.md).
package writer

import (
	"errors"

	tiledb "github.com/TileDB-Inc/TileDB-Go"
	stgpsr "github.com/yuin/stagparser"
)

// ErrSchema wraps every schema/attribute construction failure.
var ErrSchema = errors.New("writer: schema error")

// ZstdFilter builds the Zstandard compression filter at level, the same
// helper the teacher's tiledb.go exposes.
func ZstdFilter(ctx *tiledb.Context, level int32) (*tiledb.Filter, error) {
	filt, err := tiledb.NewFilter(ctx, tiledb.TILEDB_FILTER_ZSTD)
	if err != nil {
		return nil, err
	}
	if err := filt.SetOption(tiledb.TILEDB_COMPRESSION_LEVEL, level); err != nil {
		filt.Free()
		return nil, err
	}
	return filt, nil
}

// AddFilters sequentially appends filters to a filter pipeline list.
func AddFilters(list *tiledb.FilterList, filters ...*tiledb.Filter) error {
	for _, f := range filters {
		if err := list.AddFilter(f); err != nil {
			return err
		}
	}
	return nil
}

// CreateAttr creates one TileDB attribute, with its compression filter
// pipeline, from the `tiledb:"dtype=...,ftype=..."` / `filters:"zstd(level=16)"`
// struct tags on field_name — the same tag convention and dispatch the
// teacher's tiledb.go CreateAttr uses, trimmed to the datatypes and
// filters this module actually needs (int16, int32, uint32, uint64, zstd).
func CreateAttr(fieldName string, filterDefs []stgpsr.Definition, tiledbDefs map[string]stgpsr.Definition, schema *tiledb.ArraySchema, ctx *tiledb.Context) error {
	def, ok := tiledbDefs["dtype"]
	if !ok {
		return errors.Join(ErrSchema, errors.New("dtype tag not found"))
	}
	dtypeVal, _ := def.Attribute("dtype")

	var dtype tiledb.Datatype
	switch dtypeVal {
	case "int16":
		dtype = tiledb.TILEDB_INT16
	case "int32":
		dtype = tiledb.TILEDB_INT32
	case "uint32":
		dtype = tiledb.TILEDB_UINT32
	case "uint64":
		dtype = tiledb.TILEDB_UINT64
	default:
		return errors.Join(ErrSchema, errors.New("unsupported dtype: "+dtypeVal.(string)))
	}

	filterList, err := tiledb.NewFilterList(ctx)
	if err != nil {
		return errors.Join(ErrSchema, err)
	}
	defer filterList.Free()

	for _, filt := range filterDefs {
		if filt.Name() != "zstd" {
			continue
		}
		level, ok := filt.Attribute("level")
		if !ok {
			return errors.Join(ErrSchema, errors.New("zstd level not defined"))
		}
		f, err := ZstdFilter(ctx, int32(level.(int64)))
		if err != nil {
			return errors.Join(ErrSchema, err)
		}
		defer f.Free()
		if err := filterList.AddFilter(f); err != nil {
			return errors.Join(ErrSchema, err)
		}
	}

	attr, err := tiledb.NewAttribute(ctx, fieldName, dtype)
	if err != nil {
		return errors.Join(ErrSchema, err)
	}
	defer attr.Free()

	if err := attr.SetFilterList(filterList); err != nil {
		return errors.Join(ErrSchema, err)
	}
	if err := schema.AddAttributes(attr); err != nil {
		return errors.Join(ErrSchema, err)
	}
	return nil
}

// ArrayOpen opens a TileDB array at uri in the given mode, matching the
// teacher's tiledb.go ArrayOpen helper.
func ArrayOpen(ctx *tiledb.Context, uri string, mode tiledb.QueryType) (*tiledb.Array, error) {
	array, err := tiledb.NewArray(ctx, uri)
	if err != nil {
		return nil, err
	}
	if err := array.Open(mode); err != nil {
		array.Free()
		return nil, err
	}
	return array, nil
}

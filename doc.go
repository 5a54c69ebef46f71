// Package vecforge converts accelerator-built vector indexes into their
// CPU-resident, disk-serializable form and persists them for upload to an
// object store.
//
// The hard part is ownership, not math: a GPU bundle and a CPU bundle each
// claim exactly one native index plus the ID map wrapper referencing it, and
// at every point at most one structure owns the underlying resource. Convert
// moves the learned graph into a fresh CPU index, re-homes the ID map, and
// releases the device side; Write serializes the result and releases the
// host side. Both bundles are move-only: dead after the call that consumes
// them, with double release detected rather than tolerated.
//
//	params, _ := vecforge.BuildParametersFromMap(map[string]any{
//	    "ef_search": 50, "ef_construction": 200, "base_level_only": false,
//	})
//	b, _ := vecforge.New(params)
//	cpu, err := b.Convert(ctx, gpuBundle)
//	if err != nil {
//	    return err
//	}
//	return b.Write(ctx, cpu, "/data/index.cgr")
//
// The numeric machinery (graph build, search, on-disk format) lives in the
// cagra package; upload targets live in blobstore.
package vecforge

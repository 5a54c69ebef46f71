// Package cagra implements the native index structures produced by the
// accelerated (CAGRA-style) graph build and their CPU-resident, serializable
// counterparts.
//
// The package exposes two index families with an identical surface:
//
//   - Float family: GPUIndexCagra -> IndexHNSW, wrapped by IDMap.
//   - Binary family: GPUIndexBinaryCagra -> IndexBinaryHNSW (Hamming
//     distance over packed codes), wrapped by BinaryIDMap.
//
// GPU handles are host mirrors of the device-built fixed-degree knn graph;
// device memory interop lives behind the Build constructors and is out of
// scope here. CopyTo materializes the learned graph into an empty CPU index.
//
// All native structures have an explicit lifetime: Free releases the backing
// buffers and fails on a second call so double-free bugs surface instead of
// being silently tolerated.
package cagra

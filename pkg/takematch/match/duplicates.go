package match

import (
	"fmt"
	"sort"
)

// Cluster is one group of files judged to be the same underlying song:
// a connected component in the pairwise similarity graph.
type Cluster struct {
	Files []string
}

// FindDuplicates runs one batched pairwise pass over the corpus: an edge is
// drawn whenever the score meets the threshold, and connected components of
// two or more files come back as clusters. Signatures are held in memory for
// the whole pass, so nothing is decoded or scored twice.
func (e *Engine) FindDuplicates(corpus []Candidate, threshold float64) ([]Cluster, error) {
	if threshold < MinThreshold || threshold > MaxThreshold {
		return nil, fmt.Errorf("threshold %.2f outside [%.2f, %.2f]", threshold, MinThreshold, MaxThreshold)
	}

	parent := make([]int, len(corpus))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	union := func(i, j int) {
		ri, rj := find(i), find(j)
		if ri != rj {
			parent[rj] = ri
		}
	}

	for i := 0; i < len(corpus); i++ {
		if corpus[i].Signature == nil {
			continue
		}
		for j := i + 1; j < len(corpus); j++ {
			if corpus[j].Signature == nil {
				continue
			}
			if corpus[i].Signature.Algorithm != corpus[j].Signature.Algorithm {
				continue
			}
			if e.Score(corpus[i].Signature, corpus[j].Signature) >= threshold {
				union(i, j)
			}
		}
	}

	components := make(map[int][]string)
	for i, cand := range corpus {
		if cand.Signature == nil {
			continue
		}
		root := find(i)
		components[root] = append(components[root], cand.File)
	}

	clusters := make([]Cluster, 0)
	for _, files := range components {
		if len(files) < 2 {
			continue
		}
		sort.Strings(files)
		clusters = append(clusters, Cluster{Files: files})
	}
	sort.Slice(clusters, func(i, j int) bool { return clusters[i].Files[0] < clusters[j].Files[0] })
	return clusters, nil
}

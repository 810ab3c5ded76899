// Package numeric holds the dense-matrix kernels shared by the preview
// pipeline: row/column selection, percentiles, quantile binning, k-means
// clustering and PCA. Matrices are gonum *mat.Dense with samples as rows
// and features as columns.
package numeric

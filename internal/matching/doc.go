// Package matching holds the text canonicalisation and scoring rules shared by
// every registry: name and place normalisation, index keys, phonetic codes,
// similarity wrappers over a driven.SimilarityProvider, and the weighted
// person confidence model.
//
// Nothing here returns an error for empty or missing text. Empty input
// normalises to "" and scores 0; unknown factors score a neutral 50.
package matching

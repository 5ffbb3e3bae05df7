// Package mock provides test double implementations of AI service interfaces.
//
// The default MockEmbedder is a bag-of-words hashing encoder: every lowercase
// word of the input is hashed into one of Dim buckets and the result is
// L2-normalized. Texts sharing words therefore score higher under cosine
// similarity than unrelated texts, which is enough to exercise ranking
// without a network service.
//
//	m := mock.NewMockEmbedder()
//	v, _ := m.EmbedText(ctx, "What is the capital of France?")
//
//	// Custom behavior injection
//	m.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
//	    return nil, errors.New("encoder offline")
//	}
//
//	// Check call counts
//	count := m.CallCount()
package mock

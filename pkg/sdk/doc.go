// Package slidegen turns lecture slides into keyword-anchored summaries and
// multiple-choice quiz items, in process.
//
// Every model is built once by New and shared by all calls, so a Client is safe
// for concurrent use.
//
//	client, _ := slidegen.New(ctx,
//	    slidegen.WithValkey("localhost:6379", ""), // optional embedding cache
//	    slidegen.WithKeywords(3, 0.7),
//	)
//	defer client.Close()
//
//	sum, _ := client.Summarize(ctx, img, "운영체제는 프로세스를 관리한다.")
//	quiz, _ := client.GenerateQuiz(ctx, sum.Text)
//	if quiz.Degraded() {
//	    // some fields hold "unconfirmed"
//	}
//
// Without WithEmbedder keywords are ranked with a deterministic hashing embedder,
// so the client works offline.
package slidegen

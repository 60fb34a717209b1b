// Package pipeline orchestrates the multi-stage retrieval optimisation
// pipeline.
//
// A run has two phases. Draft recalls conversation memory, retrieves
// candidate passages, reranks and smart-filters them, and generates an
// answer. Finalize filters the candidates against that answer and applies
// the "no information" override. Process runs both phases and then records
// the exchange in session memory.
//
// Every stage reports a core.StageResult. A failing or panicking scoring
// stage passes its input through and the failure is recorded in the
// result. Retrieval failure ends the run with an explanatory answer and no
// sources. Generation failure falls back to a templated answer built from
// the top candidates.
//
//	orch, err := pipeline.New(searcher, provider.Generator(),
//	    pipeline.WithReranker(reranker),
//	    pipeline.WithSmartFilter(smart),
//	    pipeline.WithSourceFilter(sources),
//	    pipeline.WithMemory(manager),
//	)
//	res, err := orch.Process(ctx, pipeline.Request{Query: "2024年营收是多少？", UserID: "alice"})
package pipeline

package openai

import (
	"fmt"
	"strings"

	"github.com/poiesic/recall/ai"
)

// NoInformationReply is the wording the model is told to use when the
// passages do not answer the question.
const NoInformationReply = "No relevant information was found in the provided documents."

const systemPrompt = `You are a precise assistant answering questions about documents.

Rules:
- Answer strictly from the numbered passages. Do not add facts that are not in them.
- Cover every part of the question that the passages address, in a clear structure.
- Keep a neutral, factual tone. Quote figures exactly as the passages state them.
- Answer in the language of the question.
- If the passages do not contain the answer, reply exactly: "` + NoInformationReply + `"
  For questions in Chinese reply exactly: "根据提供的文档内容，没有找到相关信息。"
- Earlier conversation, when given, is background for resolving references such as
  "this company" or "that year". Never treat it as a source of facts.`

// buildUserPrompt lays out the memory, the passages and the question.
func buildUserPrompt(req ai.GenerationRequest) string {
	var b strings.Builder

	if req.MemoryContext != "" {
		b.WriteString("Earlier conversation:\n")
		b.WriteString(req.MemoryContext)
		b.WriteString("\n\n")
	}

	b.WriteString("Passages:\n")
	for i, c := range req.Candidates {
		fmt.Fprintf(&b, "[%d] (%s, page %s, %s)\n%s\n\n", i+1, c.DocumentName(), c.PageNumber(), c.ChunkType(), c.Content)
	}

	b.WriteString("Question: ")
	b.WriteString(req.Question)
	b.WriteString("\nAnswer:")
	return b.String()
}

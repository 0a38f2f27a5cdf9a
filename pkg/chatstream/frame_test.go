package chatstream_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jlsoftware/jlsite/pkg/chatstream"
)

var _ = Describe("ParseFrame", func() {
	DescribeTable("classifies lines",
		func(line string, kind chatstream.FrameKind, text string) {
			gotKind, gotText := chatstream.ParseFrame(line)
			Expect(gotKind).To(Equal(kind), "kind was %s", gotKind)
			Expect(gotText).To(Equal(text))
		},
		Entry("blank", "", chatstream.FrameIgnored, ""),
		Entry("whitespace only", "   \t", chatstream.FrameIgnored, ""),
		Entry("bare carriage return", "\r", chatstream.FrameIgnored, ""),
		Entry("comment", ": keep-alive", chatstream.FrameIgnored, ""),
		Entry("event field", "event: message", chatstream.FrameIgnored, ""),
		Entry("data without space", `data:{"choices":[{"delta":{"content":"x"}}]}`, chatstream.FrameIgnored, ""),
		Entry("sentinel", "data: [DONE]", chatstream.FrameDone, ""),
		Entry("sentinel with padding and CR", "data:  [DONE] \r", chatstream.FrameDone, ""),
		Entry("delta", `data: {"choices":[{"delta":{"content":"Hel"}}]}`, chatstream.FrameDelta, "Hel"),
		Entry("delta with CRLF", "data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\r", chatstream.FrameDelta, "lo"),
		Entry("role-only control frame", `data: {"choices":[{"delta":{"role":"assistant"}}]}`, chatstream.FrameIgnored, ""),
		Entry("empty content", `data: {"choices":[{"delta":{"content":""}}]}`, chatstream.FrameIgnored, ""),
		Entry("no choices", `data: {"choices":[]}`, chatstream.FrameIgnored, ""),
		Entry("valid JSON of another shape", `data: {"choices":"nope"}`, chatstream.FrameIgnored, ""),
		Entry("valid non-object JSON", `data: 42`, chatstream.FrameIgnored, ""),
		Entry("truncated JSON", `data: {"choi`, chatstream.FrameIncomplete, ""),
	)

	It("names every kind", func() {
		Expect(chatstream.FrameDelta.String()).To(Equal("delta"))
		Expect(chatstream.FrameDone.String()).To(Equal("done"))
		Expect(chatstream.FrameIncomplete.String()).To(Equal("incomplete"))
		Expect(chatstream.FrameIgnored.String()).To(Equal("ignored"))
	})
})

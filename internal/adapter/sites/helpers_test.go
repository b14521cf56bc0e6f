package sites

import "inkforge/internal/core"

func coreWork() core.Work {
	return core.Work{ID: "test-work", Title: "Test Work"}
}

func coreChapter(url string) core.ChapterDescriptor {
	return core.ChapterDescriptor{Number: 1, Title: "Chapter 1", URL: url}
}

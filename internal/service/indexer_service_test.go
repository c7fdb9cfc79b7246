package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"smart-edu-go/internal/config"
	"smart-edu-go/internal/model"
	"smart-edu-go/pkg/vectorstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingStore struct {
	records []vectorstore.Record
	failIDs map[string]bool
}

func (f *recordingStore) EnsureIndex(_ context.Context, _ int) error { return nil }

func (f *recordingStore) Upsert(_ context.Context, rec vectorstore.Record) error {
	if f.failIDs[rec.ID] {
		return errors.New("upsert rejected")
	}
	f.records = append(f.records, rec)
	return nil
}

func (f *recordingStore) Query(_ context.Context, _ []float32, _ int) ([]vectorstore.Match, error) {
	return []vectorstore.Match{}, nil
}

func (f *recordingStore) SelfTest(_ context.Context) *vectorstore.SelfTestReport {
	return &vectorstore.SelfTestReport{Healthy: true}
}

func testIndexerConfig(root string) config.IndexerConfig {
	return config.IndexerConfig{
		PagesRoot:      root,
		ChunkSize:      1000,
		UpsertDelayMs:  0,
		ExcludeDirs:    []string{"api"},
		PageExtensions: []string{".tsx", ".jsx"},
	}
}

func websiteContent(url, text string) model.WebsiteContent {
	return model.WebsiteContent{
		Title:    url,
		Content:  text,
		URL:      url,
		Type:     "page",
		Metadata: model.ContentMetadata{LastModified: time.Now()},
	}
}

func TestIndexContentsContinuesAfterItemFailure(t *testing.T) {
	store := &recordingStore{failIDs: map[string]bool{"bad_chunk_0": true}}
	svc := NewIndexerService(nil, &fakeEmbedder{}, store, testIndexerConfig(""))

	contents := []model.WebsiteContent{
		websiteContent("/first", "第一个页面的内容"),
		websiteContent("/bad", "会失败的页面"),
		websiteContent("/third", "第三个页面的内容"),
	}
	report := svc.IndexContents(context.Background(), contents)

	// 第二项失败被记录，第三项仍被处理
	assert.Equal(t, 2, report.Indexed)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "/bad")

	ids := make([]string, 0, len(store.records))
	for _, rec := range store.records {
		ids = append(ids, rec.ID)
	}
	assert.Contains(t, ids, "first_chunk_0")
	assert.Contains(t, ids, "third_chunk_0")
}

func TestIndexContentsRecordMetadata(t *testing.T) {
	store := &recordingStore{}
	svc := NewIndexerService(nil, &fakeEmbedder{}, store, testIndexerConfig(""))

	report := svc.IndexContents(context.Background(), []model.WebsiteContent{
		websiteContent("/courses/math", "数学课程介绍页面"),
	})
	assert.Equal(t, 1, report.Indexed)
	require.Len(t, store.records, 1)

	rec := store.records[0]
	assert.Equal(t, "courses_math_chunk_0", rec.ID)
	assert.Equal(t, "/courses/math", rec.Metadata["url"])
	assert.Equal(t, "page", rec.Metadata["type"])
	assert.Equal(t, "数学课程介绍页面", rec.Metadata["content"])
}

func TestIndexContentsSkipsEmptyContent(t *testing.T) {
	store := &recordingStore{}
	svc := NewIndexerService(nil, &fakeEmbedder{}, store, testIndexerConfig(""))

	report := svc.IndexContents(context.Background(), []model.WebsiteContent{
		websiteContent("/empty", "   \n  "),
	})
	// 空内容视为成功但不产生记录
	assert.Equal(t, 1, report.Indexed)
	assert.Empty(t, store.records)
}

func TestSanitizeRecordID(t *testing.T) {
	assert.Equal(t, "home", sanitizeRecordID("/"))
	assert.Equal(t, "home", sanitizeRecordID(""))
	assert.Equal(t, "courses_math", sanitizeRecordID("/courses/math"))
	assert.Equal(t, "docs_read-me", sanitizeRecordID("/docs/read-me"))
}

func TestWebsiteScannerFindsPages(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "courses"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "api", "chat"), 0o755))

	page := `export default function Home() {
  return (
    <main className="flex min-h-screen">
      <h1>智慧教育平台</h1>
      <p>面向中小学的双语教学资源</p>
    </main>
  )
}`
	require.NoError(t, os.WriteFile(filepath.Join(root, "page.tsx"), []byte(page), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "courses", "page.tsx"), []byte(page), 0o644))
	// api 子树与非页面文件都不应被收集
	require.NoError(t, os.WriteFile(filepath.Join(root, "api", "chat", "page.tsx"), []byte(page), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "layout.tsx"), []byte(page), 0o644))

	scanner := NewWebsiteScanner(testIndexerConfig(root))
	contents, err := scanner.Scan()
	require.NoError(t, err)
	require.Len(t, contents, 2)

	urls := []string{contents[0].URL, contents[1].URL}
	assert.Contains(t, urls, "/")
	assert.Contains(t, urls, "/courses")
	for _, c := range contents {
		assert.Equal(t, "page", c.Type)
		assert.Contains(t, c.Content, "智慧教育平台")
		assert.Contains(t, c.Content, "面向中小学的双语教学资源")
		// className 字符串不应混入文案
		assert.NotContains(t, c.Content, "min-h-screen")
	}
}

func TestWebsiteScannerMarkdown(t *testing.T) {
	root := t.TempDir()
	mdPath := filepath.Join(root, "about.md")
	require.NoError(t, os.WriteFile(mdPath, []byte("# 关于我们\n\n平台简介。"), 0o644))

	cfg := testIndexerConfig(root)
	cfg.MarkdownFiles = []string{mdPath, filepath.Join(root, "missing.md")}

	scanner := NewWebsiteScanner(cfg)
	contents, err := scanner.Scan()
	require.NoError(t, err)
	require.Len(t, contents, 1)
	assert.Equal(t, "关于我们", contents[0].Title)
	assert.Equal(t, "/docs/about", contents[0].URL)
	assert.Equal(t, "markdown", contents[0].Type)
}

func TestExtractComponentTextFiltersCode(t *testing.T) {
	source := `import { Button } from "@/components/ui"
const style = "flex items-center gap-2"
const api = "/api/chat"
export default function Page() {
  return <div title="欢迎来到平台"><span>联系我们了解更多</span></div>
}`
	text := extractComponentText(source)
	assert.Contains(t, text, "联系我们了解更多")
	assert.Contains(t, text, "欢迎来到平台")
	assert.NotContains(t, text, "@/components/ui")
	assert.NotContains(t, text, "/api/chat")
	assert.NotContains(t, text, "items-center")
}

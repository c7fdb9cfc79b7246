package service

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"smart-edu-go/internal/config"
	"smart-edu-go/internal/model"
	"smart-edu-go/pkg/log"
)

// WebsiteScanner 扫描前端工程目录，抽取可索引的站点内容。
type WebsiteScanner struct {
	cfg config.IndexerConfig
}

// NewWebsiteScanner 创建站点内容扫描器。
func NewWebsiteScanner(cfg config.IndexerConfig) *WebsiteScanner {
	return &WebsiteScanner{cfg: cfg}
}

// Scan 遍历页面目录收集路由页面，再读取白名单内的 markdown 文档。
// 单个文件读取失败只记日志，不中止扫描。
func (s *WebsiteScanner) Scan() ([]model.WebsiteContent, error) {
	var contents []model.WebsiteContent

	pages, err := s.scanPages()
	if err != nil {
		return nil, fmt.Errorf("扫描页面目录失败: %w", err)
	}
	contents = append(contents, pages...)

	for _, mdPath := range s.cfg.MarkdownFiles {
		content, err := s.readMarkdown(mdPath)
		if err != nil {
			log.Warnf("[WebsiteScanner] 跳过 markdown 文件 %s: %v", mdPath, err)
			continue
		}
		contents = append(contents, *content)
	}

	log.Infof("[WebsiteScanner] 扫描完成, items: %d", len(contents))
	return contents, nil
}

// scanPages 在 PagesRoot 下寻找路由页面文件。排除目录与点号开头的目录
// 整棵子树跳过；页面 URL 由相对目录段拼接而成。
func (s *WebsiteScanner) scanPages() ([]model.WebsiteContent, error) {
	root := s.cfg.PagesRoot
	if _, err := os.Stat(root); err != nil {
		return nil, err
	}

	var pages []model.WebsiteContent
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			log.Warnf("[WebsiteScanner] 访问 %s 失败: %v", path, err)
			return nil
		}
		if info.IsDir() {
			name := info.Name()
			if path != root && (s.isExcludedDir(name) || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}

		if !s.isPageFile(info.Name()) {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			log.Warnf("[WebsiteScanner] 读取页面 %s 失败: %v", path, err)
			return nil
		}

		url := s.pageURL(path)
		text := extractComponentText(string(data))
		if strings.TrimSpace(text) == "" {
			return nil
		}

		pages = append(pages, model.WebsiteContent{
			Title:   s.pageTitle(url),
			Content: text,
			URL:     url,
			Type:    "page",
			Metadata: model.ContentMetadata{
				LastModified: info.ModTime(),
				FilePath:     path,
				Size:         info.Size(),
			},
		})
		return nil
	})
	return pages, err
}

func (s *WebsiteScanner) isExcludedDir(name string) bool {
	for _, dir := range s.cfg.ExcludeDirs {
		if name == dir {
			return true
		}
	}
	return false
}

// isPageFile 判断文件是否为路由页面（page.tsx / page.jsx）。
func (s *WebsiteScanner) isPageFile(name string) bool {
	for _, ext := range s.cfg.PageExtensions {
		if name == "page"+ext {
			return true
		}
	}
	return false
}

// pageURL 由页面文件相对 PagesRoot 的目录段得到站点路径，根目录页面为 "/"。
func (s *WebsiteScanner) pageURL(path string) string {
	rel, err := filepath.Rel(s.cfg.PagesRoot, filepath.Dir(path))
	if err != nil || rel == "." {
		return "/"
	}
	return "/" + filepath.ToSlash(rel)
}

// pageTitle 用路径末段生成一个可读标题。
func (s *WebsiteScanner) pageTitle(url string) string {
	if url == "/" {
		return "首页"
	}
	segments := strings.Split(strings.Trim(url, "/"), "/")
	return segments[len(segments)-1]
}

// readMarkdown 读取 markdown 文档，首个一级标题作为标题。
func (s *WebsiteScanner) readMarkdown(path string) (*model.WebsiteContent, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	title := filepath.Base(path)
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, "# ") {
			title = strings.TrimSpace(strings.TrimPrefix(line, "# "))
			break
		}
	}

	return &model.WebsiteContent{
		Title:   title,
		Content: string(data),
		URL:     "/docs/" + strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Type:    "markdown",
		Metadata: model.ContentMetadata{
			LastModified: info.ModTime(),
			FilePath:     path,
			Size:         info.Size(),
		},
	}, nil
}

var (
	reStringLiteral = regexp.MustCompile(`["'` + "`" + `]([^"'` + "`" + `\n]{2,})["'` + "`" + `]`)
	reJSXText       = regexp.MustCompile(`>([^<>{}\n]+)<`)
	reCSSFragment   = regexp.MustCompile(`^[a-z0-9-]+(:| ?\{)`)
	reClassToken    = regexp.MustCompile(`^[a-z0-9-]+( [a-z0-9/:.\[\]-]+)*$`)
)

// extractComponentText 从 React 组件源码中启发式地抽取人类可读文本：
// JSX 标签之间的文本节点，以及看起来不像代码的字符串字面量。
// 含路径分隔符、模块引用、样式片段或纯 class 名的字面量一律丢弃。
func extractComponentText(source string) string {
	var parts []string

	for _, m := range reJSXText.FindAllStringSubmatch(source, -1) {
		text := strings.TrimSpace(m[1])
		if len([]rune(text)) > 3 {
			parts = append(parts, text)
		}
	}

	for _, m := range reStringLiteral.FindAllStringSubmatch(source, -1) {
		text := strings.TrimSpace(m[1])
		if looksLikeCode(text) {
			continue
		}
		if len([]rune(text)) > 3 {
			parts = append(parts, text)
		}
	}

	return html.UnescapeString(strings.Join(parts, "\n"))
}

// looksLikeCode 过滤明显不是文案的字符串字面量。
func looksLikeCode(s string) bool {
	if strings.Contains(s, "/") || strings.Contains(s, "@") || strings.Contains(s, "=") {
		return true
	}
	if reCSSFragment.MatchString(s) {
		return true
	}
	// 全小写带连字符的 token 序列，基本是 className
	if !strings.ContainsAny(s, "。，！？") && reClassToken.MatchString(s) {
		return true
	}
	return false
}

package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"smart-edu-go/internal/model"
	"smart-edu-go/pkg/tasks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gorm.io/gorm"
)

type fakeObjectStore struct {
	objects []string
}

func (f *fakeObjectStore) PutDocument(_ context.Context, fileMD5, fileName, _ string, _ []byte) (string, error) {
	objectName := fmt.Sprintf("documents/%s/%s", fileMD5, fileName)
	f.objects = append(f.objects, objectName)
	return objectName, nil
}

func (f *fakeObjectStore) PresignedURL(_ context.Context, objectName string, _ time.Duration) (string, error) {
	return "https://minio.local/" + objectName + "?signature=abc", nil
}

type fakeTaskProducer struct {
	produced []tasks.DocumentProcessingTask
}

func (f *fakeTaskProducer) ProduceDocumentTask(_ context.Context, task tasks.DocumentProcessingTask) error {
	f.produced = append(f.produced, task)
	return nil
}

type fakeLedger struct {
	uploads map[string]*model.DocumentUpload
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{uploads: make(map[string]*model.DocumentUpload)}
}

func (f *fakeLedger) CreateUpload(upload *model.DocumentUpload) error {
	f.uploads[upload.FileMD5] = upload
	return nil
}

func (f *fakeLedger) FindUploadByMD5(fileMD5 string) (*model.DocumentUpload, error) {
	upload, ok := f.uploads[fileMD5]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return upload, nil
}

func (f *fakeLedger) UpdateUploadStatus(fileMD5 string, status int) error {
	if upload, ok := f.uploads[fileMD5]; ok {
		upload.Status = status
	}
	return nil
}

func (f *fakeLedger) ReplaceChunks(string, []model.ChunkRecord) error { return nil }

func (f *fakeLedger) FindChunksByMD5(string) ([]model.ChunkRecord, error) { return nil, nil }

func (f *fakeLedger) ListUploads(int, int) ([]model.DocumentUpload, int64, error) {
	return nil, int64(len(f.uploads)), nil
}

func TestUploadDocumentNewFile(t *testing.T) {
	store := &fakeObjectStore{}
	producer := &fakeTaskProducer{}
	ledger := newFakeLedger()
	svc := NewIngestService(store, producer, ledger)

	upload, err := svc.UploadDocument(context.Background(), []byte("课程内容"), "course.txt", "text/plain")
	require.NoError(t, err)
	assert.Equal(t, model.UploadStatusPending, upload.Status)
	assert.Equal(t, "course.txt", upload.FileName)

	require.Len(t, store.objects, 1)
	require.Len(t, producer.produced, 1)
	assert.Equal(t, upload.FileMD5, producer.produced[0].FileMD5)
	assert.Equal(t, store.objects[0], producer.produced[0].ObjectName)
}

func TestUploadDocumentDuplicateSkipsReprocessing(t *testing.T) {
	store := &fakeObjectStore{}
	producer := &fakeTaskProducer{}
	ledger := newFakeLedger()
	svc := NewIngestService(store, producer, ledger)

	data := []byte("同一份文件")
	first, err := svc.UploadDocument(context.Background(), data, "dup.txt", "text/plain")
	require.NoError(t, err)
	ledger.uploads[first.FileMD5].Status = model.UploadStatusProcessed

	second, err := svc.UploadDocument(context.Background(), data, "dup.txt", "text/plain")
	require.ErrorIs(t, err, ErrDocumentExists)
	assert.Equal(t, first.FileMD5, second.FileMD5)
	// 重复上传不再投递任务
	assert.Len(t, producer.produced, 1)
}

func TestUploadDocumentRetriesAfterFailure(t *testing.T) {
	store := &fakeObjectStore{}
	producer := &fakeTaskProducer{}
	ledger := newFakeLedger()
	svc := NewIngestService(store, producer, ledger)

	data := []byte("上次失败的文件")
	first, err := svc.UploadDocument(context.Background(), data, "retry.txt", "text/plain")
	require.NoError(t, err)
	ledger.uploads[first.FileMD5].Status = model.UploadStatusFailed

	second, err := svc.UploadDocument(context.Background(), data, "retry.txt", "text/plain")
	require.NoError(t, err)
	assert.Equal(t, model.UploadStatusPending, second.Status)
	assert.Len(t, producer.produced, 2)
}

func TestGetDownloadURL(t *testing.T) {
	store := &fakeObjectStore{}
	ledger := newFakeLedger()
	svc := NewIngestService(store, &fakeTaskProducer{}, ledger)

	upload, err := svc.UploadDocument(context.Background(), []byte("可下载内容"), "lecture.pdf", "application/pdf")
	require.NoError(t, err)

	url, err := svc.GetDownloadURL(context.Background(), upload.FileMD5)
	require.NoError(t, err)
	assert.Contains(t, url, "documents/"+upload.FileMD5+"/lecture.pdf")
	assert.Contains(t, url, "signature=")
}

func TestGetDownloadURLNotFound(t *testing.T) {
	svc := NewIngestService(&fakeObjectStore{}, &fakeTaskProducer{}, newFakeLedger())

	_, err := svc.GetDownloadURL(context.Background(), "deadbeef")
	require.ErrorIs(t, err, ErrDocumentNotFound)
}

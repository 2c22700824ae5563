package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/google/uuid"
	"gorm.io/gorm"

	model "github.com/buildgrid/sitewise/models"
)

const (
	documentsIndex = "documents"
	tasksIndex     = "tasks"
)

// DocumentService stores project documents in Supabase's S3-compatible
// storage and mirrors documents and tasks into Elasticsearch for /search.
type DocumentService struct {
	s3Client *s3.S3
	esClient *elasticsearch.Client
	db       *gorm.DB
	notify   *Notifier
}

// NewDocumentService initializes the service with an S3 client and
// Elasticsearch client. Elasticsearch is optional: without it uploads still
// work, search returns an error.
func NewDocumentService(db *gorm.DB, notify *Notifier) (*DocumentService, error) {
	region := os.Getenv("SUPABASE_REGION")
	endpoint := os.Getenv("SUPABASE_S3_ENDPOINT")
	accessKey := os.Getenv("SUPABASE_ACCESS_KEY")
	secretKey := os.Getenv("SUPABASE_SECRET_KEY")

	if region == "" || endpoint == "" || accessKey == "" || secretKey == "" {
		return nil, fmt.Errorf("missing required S3 configuration environment variables")
	}

	sess, err := session.NewSession(&aws.Config{
		Region:           aws.String(region),
		Endpoint:         aws.String(endpoint),
		DisableSSL:       aws.Bool(false),
		Credentials:      credentials.NewStaticCredentials(accessKey, secretKey, ""),
		S3ForcePathStyle: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	var esClient *elasticsearch.Client
	if esURL := os.Getenv("ELASTICSEARCH_URL"); esURL != "" {
		esClient, err = elasticsearch.NewClient(elasticsearch.Config{
			Addresses: []string{esURL},
		})
		if err != nil {
			log.Printf("Warning: Failed to create Elasticsearch client: %v", err)
			esClient = nil
		}
	}

	return &DocumentService{s3Client: s3.New(sess), esClient: esClient, db: db, notify: notify}, nil
}

// UploadDocument stores the file in the project bucket, saves the document
// row, and indexes it for search.
func (s *DocumentService) UploadDocument(projectID string, taskID *string, category, uploadedBy string, file multipart.File, header *multipart.FileHeader) (model.Document, error) {
	var doc model.Document

	log.Printf("[UploadDocument] File details: Name=%s, Size=%d", header.Filename, header.Size)

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		log.Printf("[UploadDocument] Error reading file: %v", err)
		return doc, fmt.Errorf("failed to read file: %w", err)
	}

	bucket := os.Getenv("SUPABASE_BUCKET")
	if bucket == "" {
		return doc, fmt.Errorf("bucket name not configured")
	}

	fileID := fmt.Sprintf("%s/%s-%s", projectID, uuid.NewString(), header.Filename)
	uploadInput := &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(fileID),
		Body:        bytes.NewReader(fileBytes),
		ContentType: aws.String(header.Header.Get("Content-Type")),
	}
	if _, err := s.s3Client.PutObject(uploadInput); err != nil {
		log.Printf("[UploadDocument] S3 upload error: %v", err)
		return doc, fmt.Errorf("failed to upload file to storage: %w", err)
	}

	fileURL := fmt.Sprintf("%s/object/public/%s/%s", os.Getenv("SUPABASE_S3_URL"), bucket, fileID)
	log.Printf("[UploadDocument] File stored at: %s", fileURL)

	fileName := filepath.Base(header.Filename)
	fileType := strings.TrimPrefix(filepath.Ext(fileName), ".")
	title := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	if category == "" {
		category = model.DocOther
	}

	doc = model.Document{
		ProjectID:   projectID,
		TaskID:      taskID,
		Title:       title,
		FileType:    fileType,
		Category:    category,
		OriginalURL: fileURL,
		UploadedBy:  uploadedBy,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := s.db.Create(&doc).Error; err != nil {
		log.Printf("[UploadDocument] Error saving document to database: %v", err)
		return doc, fmt.Errorf("failed to save document: %w", err)
	}

	if err := s.indexDocument(doc); err != nil {
		// Search lags behind, but the upload stands.
		log.Printf("[UploadDocument] Elasticsearch indexing error: %v", err)
	}

	s.notify.Record(projectID, "document", doc.ID, "created", uploadedBy, doc)
	return doc, nil
}

// ListDocuments returns a project's documents, optionally filtered by
// category.
func (s *DocumentService) ListDocuments(projectID, category string) ([]model.Document, error) {
	query := s.db.Where("project_id = ?", projectID)
	if category != "" {
		query = query.Where("category = ?", category)
	}
	var docs []model.Document
	if err := query.Order("created_at DESC").Find(&docs).Error; err != nil {
		log.Printf("[ListDocuments] Error fetching documents for project %s: %v", projectID, err)
		return nil, err
	}
	return docs, nil
}

// indexDocument mirrors a document row into Elasticsearch.
func (s *DocumentService) indexDocument(doc model.Document) error {
	if s.esClient == nil {
		return nil
	}
	doc.SearchContent = doc.Title + " " + doc.Category
	body, err := json.Marshal(map[string]interface{}{
		"project_id":     doc.ProjectID,
		"title":          doc.Title,
		"category":       doc.Category,
		"file_type":      doc.FileType,
		"original_url":   doc.OriginalURL,
		"search_content": doc.SearchContent,
		"created_at":     doc.CreatedAt,
	})
	if err != nil {
		return err
	}

	res, err := s.esClient.Index(
		documentsIndex,
		bytes.NewReader(body),
		s.esClient.Index.WithDocumentID(doc.ID),
		s.esClient.Index.WithContext(context.Background()),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch index failed: %s", res.String())
	}
	return nil
}

// IndexTask mirrors a task row into Elasticsearch so /search covers tasks.
func (s *DocumentService) IndexTask(task model.Task) error {
	if s.esClient == nil {
		return nil
	}
	body, err := json.Marshal(map[string]interface{}{
		"project_id":     task.ProjectID,
		"title":          task.Title,
		"stage":          task.Stage,
		"trade":          task.Trade,
		"search_content": task.Title + " " + task.Description,
		"created_at":     task.CreatedAt,
	})
	if err != nil {
		return err
	}

	res, err := s.esClient.Index(
		tasksIndex,
		bytes.NewReader(body),
		s.esClient.Index.WithDocumentID(task.ID),
		s.esClient.Index.WithContext(context.Background()),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch index failed: %s", res.String())
	}
	return nil
}

// RemoveTask drops a deleted task from the search index.
func (s *DocumentService) RemoveTask(taskID string) error {
	if s.esClient == nil {
		return nil
	}
	res, err := s.esClient.Delete(
		tasksIndex,
		taskID,
		s.esClient.Delete.WithContext(context.Background()),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return nil
}

// Search runs a multi-match query across the document and task indexes.
func (s *DocumentService) Search(query string) ([]map[string]interface{}, error) {
	if s.esClient == nil {
		return nil, fmt.Errorf("elasticsearch client is not initialized")
	}

	searchQuery := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"title", "search_content", "category", "trade"},
			},
		},
	}
	body, err := json.Marshal(searchQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query: %w", err)
	}

	res, err := s.esClient.Search(
		s.esClient.Search.WithContext(context.Background()),
		s.esClient.Search.WithIndex(documentsIndex, tasksIndex),
		s.esClient.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch search failed: %s", res.String())
	}

	var result map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	hitsMap, ok := result["hits"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid hits structure in search response")
	}
	hitsArray, ok := hitsMap["hits"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid hits array in search response")
	}

	var matches []map[string]interface{}
	for _, hit := range hitsArray {
		hitMap, ok := hit.(map[string]interface{})
		if !ok {
			continue
		}
		source, ok := hitMap["_source"].(map[string]interface{})
		if !ok {
			continue
		}
		source["_id"] = hitMap["_id"]
		source["_index"] = hitMap["_index"]
		matches = append(matches, source)
	}
	return matches, nil
}

// Package ddb implements the record store on a single DynamoDB table.
// This is the only package that knows about DynamoDB specifics.
package ddb

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"kbgraph/internal/domain"
	"kbgraph/internal/repository"
	apperrors "kbgraph/pkg/errors"
)

var (
	_ repository.Store                = (*Store)(nil)
	_ repository.TagAssociationLister = (*Store)(nil)
)

// Client is the subset of the DynamoDB API the store uses.
type Client interface {
	dynamodb.QueryAPIClient
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// NewClient builds a DynamoDB client from the default AWS credential chain.
// A non-empty endpoint points the client at DynamoDB Local.
func NewClient(ctx context.Context, region, endpoint string) (*dynamodb.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, apperrors.NewUnavailableError("aws config").WithCause(err)
	}
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

// Store is the DynamoDB record store.
type Store struct {
	client    Client
	tableName string
	indexName string
	logger    *zap.Logger
}

// NewStore creates a store over tableName, using indexName for id lookups.
func NewStore(client Client, tableName, indexName string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{client: client, tableName: tableName, indexName: indexName, logger: logger}
}

func (s *Store) Close() error { return nil }

// queryPartition returns every item of the user's partition whose sort key
// starts with prefix.
func (s *Store) queryPartition(ctx context.Context, userID, prefix string, filter *expression.ConditionBuilder) ([]map[string]types.AttributeValue, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(userPK(userID))).
		And(expression.KeyBeginsWith(expression.Key("SK"), prefix))

	builder := expression.NewBuilder().WithKeyCondition(keyCond)
	if filter != nil {
		builder = builder.WithFilter(*filter)
	}
	expr, err := builder.Build()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query expression").WithCause(err)
	}

	paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})

	var items []map[string]types.AttributeValue
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		items = append(items, page.Items...)
	}
	return items, nil
}

// lookup resolves an item by id through GSI1.
func (s *Store) lookup(ctx context.Context, gsiPK string) (map[string]types.AttributeValue, error) {
	keyCond := expression.Key("GSI1PK").Equal(expression.Value(gsiPK)).
		And(expression.Key("GSI1SK").Equal(expression.Value(gsiSortKey)))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build lookup expression").WithCause(err)
	}

	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		IndexName:                 aws.String(s.indexName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, nil
	}
	return out.Items[0], nil
}

func notDeleted() *expression.ConditionBuilder {
	c := expression.AttributeNotExists(expression.Name("DeletedAt"))
	return &c
}

func (s *Store) listDocuments(ctx context.Context, userID string, filter *expression.ConditionBuilder) ([]domain.Document, error) {
	items, err := s.queryPartition(ctx, userID, skDocument, filter)
	if err != nil {
		return nil, err
	}
	var rows []ddbDocument
	if err := attributevalue.UnmarshalListOfMaps(items, &rows); err != nil {
		return nil, apperrors.NewInternalError("failed to unmarshal documents").WithCause(err)
	}
	out := make([]domain.Document, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// Reads

func (s *Store) ListDocuments(ctx context.Context, userID string) ([]domain.Document, error) {
	docs, err := s.listDocuments(ctx, userID, notDeleted())
	return docs, mapError("ListDocuments", "document", err)
}

func (s *Store) ListDocumentsForCategory(ctx context.Context, categoryID domain.CategoryID, userID string) ([]domain.Document, error) {
	filter := notDeleted().And(expression.Name("CategoryID").Equal(expression.Value(string(categoryID))))
	docs, err := s.listDocuments(ctx, userID, &filter)
	return docs, mapError("ListDocumentsForCategory", "document", err)
}

func (s *Store) ListDocumentsForTag(ctx context.Context, tagID domain.TagID, userID string) ([]domain.Document, error) {
	assocs, err := s.ListTagAssociations(ctx, userID)
	if err != nil {
		return nil, err
	}
	tagged := make(map[domain.DocumentID]bool)
	for _, a := range assocs {
		if a.TagID == tagID {
			tagged[a.DocumentID] = true
		}
	}

	docs, err := s.ListDocuments(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Document, 0, len(tagged))
	for _, d := range docs {
		if tagged[d.ID] {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *Store) GetDocument(ctx context.Context, documentID domain.DocumentID) (*domain.Document, error) {
	item, err := s.lookup(ctx, documentSK(documentID))
	if err != nil {
		return nil, mapError("GetDocument", "document", err)
	}
	if item == nil {
		return nil, apperrors.NewNotFoundError("document")
	}
	var row ddbDocument
	if err := attributevalue.UnmarshalMap(item, &row); err != nil {
		return nil, apperrors.NewInternalError("failed to unmarshal document").WithCause(err)
	}
	d := row.toDomain()
	if d.IsDeleted() {
		return nil, apperrors.NewNotFoundError("document")
	}
	return &d, nil
}

func (s *Store) ListCategories(ctx context.Context, userID string) ([]domain.Category, error) {
	items, err := s.queryPartition(ctx, userID, skCategory, nil)
	if err != nil {
		return nil, mapError("ListCategories", "category", err)
	}
	var rows []ddbCategory
	if err := attributevalue.UnmarshalListOfMaps(items, &rows); err != nil {
		return nil, apperrors.NewInternalError("failed to unmarshal categories").WithCause(err)
	}
	out := make([]domain.Category, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) GetCategory(ctx context.Context, categoryID domain.CategoryID) (*domain.Category, error) {
	item, err := s.lookup(ctx, categorySK(categoryID))
	if err != nil {
		return nil, mapError("GetCategory", "category", err)
	}
	if item == nil {
		return nil, apperrors.NewNotFoundError("category")
	}
	var row ddbCategory
	if err := attributevalue.UnmarshalMap(item, &row); err != nil {
		return nil, apperrors.NewInternalError("failed to unmarshal category").WithCause(err)
	}
	c := row.toDomain()
	return &c, nil
}

func (s *Store) ListTags(ctx context.Context, userID string) ([]domain.Tag, error) {
	items, err := s.queryPartition(ctx, userID, skTag, nil)
	if err != nil {
		return nil, mapError("ListTags", "tag", err)
	}
	var rows []ddbTag
	if err := attributevalue.UnmarshalListOfMaps(items, &rows); err != nil {
		return nil, apperrors.NewInternalError("failed to unmarshal tags").WithCause(err)
	}
	out := make([]domain.Tag, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) ListTagsForDocument(ctx context.Context, documentID domain.DocumentID, userID string) ([]domain.Tag, error) {
	items, err := s.queryPartition(ctx, userID, skDocTag+string(documentID)+"#", nil)
	if err != nil {
		return nil, mapError("ListTagsForDocument", "tag", err)
	}
	wanted := make(map[domain.TagID]bool, len(items))
	for _, item := range items {
		var row ddbDocTag
		if err := attributevalue.UnmarshalMap(item, &row); err != nil {
			continue
		}
		if _, tagID, err := parseDocTagSK(row.SK); err == nil {
			wanted[tagID] = true
		}
	}
	if len(wanted) == 0 {
		return []domain.Tag{}, nil
	}

	tags, err := s.ListTags(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Tag, 0, len(wanted))
	for _, t := range tags {
		if wanted[t.ID] {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) ListTagAssociations(ctx context.Context, userID string) ([]domain.TagAssociation, error) {
	items, err := s.queryPartition(ctx, userID, skDocTag, nil)
	if err != nil {
		return nil, mapError("ListTagAssociations", "tag", err)
	}
	deleted, err := s.deletedDocuments(ctx, userID)
	if err != nil {
		return nil, mapError("ListTagAssociations", "document", err)
	}

	out := make([]domain.TagAssociation, 0, len(items))
	for _, item := range items {
		var row ddbDocTag
		if err := attributevalue.UnmarshalMap(item, &row); err != nil {
			s.logger.Warn("skipping undecodable association", zap.String("user_id", userID), zap.Error(err))
			continue
		}
		doc, tag, err := parseDocTagSK(row.SK)
		if err != nil {
			s.logger.Warn("skipping malformed association", zap.String("sk", row.SK), zap.Error(err))
			continue
		}
		if deleted[doc] {
			continue
		}
		out = append(out, domain.TagAssociation{DocumentID: doc, TagID: tag})
	}
	return out, nil
}

// deletedDocuments returns the ids of the user's soft-deleted documents.
func (s *Store) deletedDocuments(ctx context.Context, userID string) (map[domain.DocumentID]bool, error) {
	filter := expression.AttributeExists(expression.Name("DeletedAt"))
	docs, err := s.listDocuments(ctx, userID, &filter)
	if err != nil {
		return nil, err
	}
	out := make(map[domain.DocumentID]bool, len(docs))
	for _, d := range docs {
		out[d.ID] = true
	}
	return out, nil
}

// Writes

func (s *Store) UpdateCategoryParent(ctx context.Context, userID string, categoryID domain.CategoryID, parentID *domain.CategoryID) error {
	now := expression.Value(formatTime(time.Now()))
	var update expression.UpdateBuilder
	if parentID == nil {
		update = expression.Remove(expression.Name("ParentID")).Set(expression.Name("UpdatedAt"), now)
	} else {
		update = expression.Set(expression.Name("ParentID"), expression.Value(string(*parentID))).
			Set(expression.Name("UpdatedAt"), now)
	}
	expr, err := expression.NewBuilder().
		WithUpdate(update).
		WithCondition(expression.AttributeExists(expression.Name("PK"))).
		Build()
	if err != nil {
		return apperrors.NewInternalError("failed to build update expression").WithCause(err)
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: userPK(userID)},
			"SK": &types.AttributeValueMemberS{Value: categorySK(categoryID)},
		},
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	return mapError("UpdateCategoryParent", "category", err)
}

func (s *Store) DeleteCategory(ctx context.Context, userID string, categoryID domain.CategoryID) error {
	expr, err := expression.NewBuilder().
		WithCondition(expression.AttributeExists(expression.Name("PK"))).
		Build()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete expression").WithCause(err)
	}

	_, err = s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: userPK(userID)},
			"SK": &types.AttributeValueMemberS{Value: categorySK(categoryID)},
		},
		ConditionExpression:      expr.Condition(),
		ExpressionAttributeNames: expr.Names(),
	})
	return mapError("DeleteCategory", "category", err)
}

func (s *Store) putItem(ctx context.Context, operation string, v interface{}) error {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return apperrors.NewInternalError("failed to marshal item").WithCause(err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	return mapError(operation, "item", err)
}

func (s *Store) PutCategory(ctx context.Context, c domain.Category) error {
	return s.putItem(ctx, "PutCategory", toCategoryItem(c))
}

func (s *Store) PutDocument(ctx context.Context, d domain.Document) error {
	return s.putItem(ctx, "PutDocument", toDocumentItem(d))
}

func (s *Store) PutTag(ctx context.Context, t domain.Tag) error {
	return s.putItem(ctx, "PutTag", toTagItem(t))
}

func (s *Store) AttachTag(ctx context.Context, userID string, documentID domain.DocumentID, tagID domain.TagID) error {
	return s.putItem(ctx, "AttachTag", ddbDocTag{PK: userPK(userID), SK: docTagSK(documentID, tagID)})
}

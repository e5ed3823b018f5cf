package services

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeDB is a function-field stub of the DB interface. Tests set only the
// calls they expect; everything else returns empty results.
type fakeDB struct {
	GetItemFn               func(ctx context.Context, tableName string, key map[string]types.AttributeValue) (map[string]types.AttributeValue, error)
	PutItemFn               func(ctx context.Context, tableName string, item interface{}) error
	PutItemConditionalFn    func(ctx context.Context, tableName string, item interface{}, condition string, names map[string]string) error
	UpdateItemFn            func(ctx context.Context, tableName, updateExpression string, key, values map[string]types.AttributeValue, names map[string]string) (map[string]types.AttributeValue, error)
	DeleteItemFn            func(ctx context.Context, tableName string, key map[string]types.AttributeValue) error
	QueryItemsFn            func(ctx context.Context, tableName, keyCondition string, values map[string]types.AttributeValue, names map[string]string, limit int32) ([]map[string]types.AttributeValue, error)
	QueryItemsWithIndexFn   func(ctx context.Context, tableName, indexName, keyCondition string, values map[string]types.AttributeValue, names map[string]string, limit int32) ([]map[string]types.AttributeValue, error)
	QueryItemsWithOptionsFn func(ctx context.Context, tableName, keyCondition string, values map[string]types.AttributeValue, names map[string]string, limit int32, latestFirst bool) ([]map[string]types.AttributeValue, error)
	ScanWithFilterFn        func(ctx context.Context, tableName string, filterFunc func(map[string]types.AttributeValue) bool, excludeFields map[string]string, result interface{}) error
	BatchWriteItemsFn       func(ctx context.Context, tableName string, writeRequests []types.WriteRequest) error
	TransactWriteItemsFn    func(ctx context.Context, items []types.TransactWriteItem) error
}

func (f *fakeDB) GetItem(ctx context.Context, tableName string, key map[string]types.AttributeValue) (map[string]types.AttributeValue, error) {
	if f.GetItemFn != nil {
		return f.GetItemFn(ctx, tableName, key)
	}
	return nil, ErrItemNotFound
}

func (f *fakeDB) PutItem(ctx context.Context, tableName string, item interface{}) error {
	if f.PutItemFn != nil {
		return f.PutItemFn(ctx, tableName, item)
	}
	return nil
}

func (f *fakeDB) PutItemConditional(ctx context.Context, tableName string, item interface{}, condition string, names map[string]string) error {
	if f.PutItemConditionalFn != nil {
		return f.PutItemConditionalFn(ctx, tableName, item, condition, names)
	}
	return nil
}

func (f *fakeDB) UpdateItem(ctx context.Context, tableName, updateExpression string, key, values map[string]types.AttributeValue, names map[string]string) (map[string]types.AttributeValue, error) {
	if f.UpdateItemFn != nil {
		return f.UpdateItemFn(ctx, tableName, updateExpression, key, values, names)
	}
	return map[string]types.AttributeValue{}, nil
}

func (f *fakeDB) DeleteItem(ctx context.Context, tableName string, key map[string]types.AttributeValue) error {
	if f.DeleteItemFn != nil {
		return f.DeleteItemFn(ctx, tableName, key)
	}
	return nil
}

func (f *fakeDB) QueryItems(ctx context.Context, tableName, keyCondition string, values map[string]types.AttributeValue, names map[string]string, limit int32) ([]map[string]types.AttributeValue, error) {
	if f.QueryItemsFn != nil {
		return f.QueryItemsFn(ctx, tableName, keyCondition, values, names, limit)
	}
	return nil, nil
}

func (f *fakeDB) QueryItemsWithIndex(ctx context.Context, tableName, indexName, keyCondition string, values map[string]types.AttributeValue, names map[string]string, limit int32) ([]map[string]types.AttributeValue, error) {
	if f.QueryItemsWithIndexFn != nil {
		return f.QueryItemsWithIndexFn(ctx, tableName, indexName, keyCondition, values, names, limit)
	}
	return nil, nil
}

func (f *fakeDB) QueryItemsWithOptions(ctx context.Context, tableName, keyCondition string, values map[string]types.AttributeValue, names map[string]string, limit int32, latestFirst bool) ([]map[string]types.AttributeValue, error) {
	if f.QueryItemsWithOptionsFn != nil {
		return f.QueryItemsWithOptionsFn(ctx, tableName, keyCondition, values, names, limit, latestFirst)
	}
	return nil, nil
}

func (f *fakeDB) ScanWithFilter(ctx context.Context, tableName string, filterFunc func(map[string]types.AttributeValue) bool, excludeFields map[string]string, result interface{}) error {
	if f.ScanWithFilterFn != nil {
		return f.ScanWithFilterFn(ctx, tableName, filterFunc, excludeFields, result)
	}
	return nil
}

func (f *fakeDB) BatchWriteItems(ctx context.Context, tableName string, writeRequests []types.WriteRequest) error {
	if f.BatchWriteItemsFn != nil {
		return f.BatchWriteItemsFn(ctx, tableName, writeRequests)
	}
	return nil
}

func (f *fakeDB) TransactWriteItems(ctx context.Context, items []types.TransactWriteItem) error {
	if f.TransactWriteItemsFn != nil {
		return f.TransactWriteItemsFn(ctx, items)
	}
	return nil
}

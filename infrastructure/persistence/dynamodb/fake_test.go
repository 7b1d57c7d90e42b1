package dynamodb

import (
	"context"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeDynamo is an in-memory table that understands the conjunctive
// expressions produced by the expression builder.
type fakeDynamo struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
	calls map[string]int
}

var _ API = (*fakeDynamo)(nil)

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: map[string]map[string]types.AttributeValue{}, calls: map[string]int{}}
}

var (
	equalRe      = regexp.MustCompile(`(#\w+)\s*=\s*(:\w+)`)
	existsRe     = regexp.MustCompile(`attribute_exists\s*\(\s*(#\w+)\s*\)`)
	notExistsRe  = regexp.MustCompile(`attribute_not_exists\s*\(\s*(#\w+)\s*\)`)
	beginsWithRe = regexp.MustCompile(`begins_with\s*\(\s*(#\w+)\s*,\s*(:\w+)\s*\)`)
)

func keyOf(av map[string]types.AttributeValue) string {
	return av["PK"].(*types.AttributeValueMemberS).Value + "|" + av["SK"].(*types.AttributeValueMemberS).Value
}

func copyItem(av map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(av))
	for k, v := range av {
		out[k] = v
	}
	return out
}

// matches evaluates expr against item; a nil item has no attributes.
func matches(expr *string, names map[string]string, values map[string]types.AttributeValue, item map[string]types.AttributeValue) bool {
	if expr == nil {
		return true
	}
	e := *expr
	for _, m := range notExistsRe.FindAllStringSubmatch(e, -1) {
		if _, ok := item[names[m[1]]]; ok {
			return false
		}
	}
	for _, m := range existsRe.FindAllStringSubmatch(e, -1) {
		if _, ok := item[names[m[1]]]; !ok {
			return false
		}
	}
	for _, m := range beginsWithRe.FindAllStringSubmatch(e, -1) {
		got, ok := item[names[m[1]]].(*types.AttributeValueMemberS)
		prefix := values[m[2]].(*types.AttributeValueMemberS).Value
		if !ok || !strings.HasPrefix(got.Value, prefix) {
			return false
		}
	}
	for _, m := range equalRe.FindAllStringSubmatch(e, -1) {
		if !reflect.DeepEqual(item[names[m[1]]], values[m[2]]) {
			return false
		}
	}
	return true
}

func conditionFailed() error {
	return &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
}

func (f *fakeDynamo) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["GetItem"]++
	item, ok := f.items[keyOf(in.Key)]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: copyItem(item)}, nil
}

func (f *fakeDynamo) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["PutItem"]++
	key := keyOf(in.Item)
	if !matches(in.ConditionExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues, f.items[key]) {
		return nil, conditionFailed()
	}
	f.items[key] = copyItem(in.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["UpdateItem"]++
	key := keyOf(in.Key)
	current := f.items[key]
	if !matches(in.ConditionExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues, current) {
		return nil, conditionFailed()
	}

	next := copyItem(in.Key)
	for k, v := range current {
		next[k] = v
	}
	set := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(aws.ToString(in.UpdateExpression)), "SET"))
	for _, m := range equalRe.FindAllStringSubmatch(set, -1) {
		next[in.ExpressionAttributeNames[m[1]]] = in.ExpressionAttributeValues[m[2]]
	}
	f.items[key] = next
	return &dynamodb.UpdateItemOutput{}, nil
}

func (f *fakeDynamo) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["DeleteItem"]++
	key := keyOf(in.Key)
	if !matches(in.ConditionExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues, f.items[key]) {
		return nil, conditionFailed()
	}
	delete(f.items, key)
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeDynamo) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["Query"]++
	out := &dynamodb.QueryOutput{}
	for _, item := range f.items {
		if matches(in.KeyConditionExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues, item) {
			out.Items = append(out.Items, copyItem(item))
		}
	}
	return out, nil
}

func (f *fakeDynamo) Scan(ctx context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["Scan"]++
	out := &dynamodb.ScanOutput{}
	for _, item := range f.items {
		if matches(in.FilterExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues, item) {
			out.Items = append(out.Items, copyItem(item))
		}
	}
	return out, nil
}

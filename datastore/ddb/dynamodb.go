/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	stderrors "errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	streamsdk "github.com/aws/aws-sdk-go-v2/service/dynamodbstreams"
	"github.com/rs/zerolog"

	"github.com/suparena/mfgstore/errors"
	"github.com/suparena/mfgstore/registry"
)

// Datastore implements datastore.RemoteSource[T] on DynamoDB. Partition and
// sort keys come from the macro templates in the type's registered table map
// ({FieldName} refers to a struct field of T).
type Datastore[T any] struct {
	client  *sdk.Client
	streams *streamsdk.Client
	table   string
	tm      registry.TableMap
	keyFunc registry.KeyFunc[T]
	log     zerolog.Logger
}

// Option configures a Datastore during construction.
type Option[T any] func(*Datastore[T])

// WithLogger attaches a logger to the datastore.
func WithLogger[T any](log zerolog.Logger) Option[T] {
	return func(d *Datastore[T]) {
		d.log = log
	}
}

// WithTable overrides the table name from the registered table map.
func WithTable[T any](table string) Option[T] {
	return func(d *Datastore[T]) {
		d.table = table
	}
}

// LoadConfig builds an AWS configuration from static credentials.
func LoadConfig(ctx context.Context, accessKey, secretKey, region string) (aws.Config, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		),
	)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return cfg, nil
}

// New creates a DynamoDB datastore for type T. The type must have a table map
// and a key extractor registered.
func New[T any](cfg aws.Config, opts ...Option[T]) (*Datastore[T], error) {
	tm, ok := registry.GetTableMap[T]()
	if !ok {
		var zero T
		return nil, fmt.Errorf("%w: %T", errors.ErrNoTableMap, zero)
	}
	keyFunc, err := registry.GetKeyFunc[T]()
	if err != nil {
		return nil, err
	}

	d := &Datastore[T]{
		client:  sdk.NewFromConfig(cfg),
		streams: streamsdk.NewFromConfig(cfg),
		table:   tm.Table,
		tm:      tm,
		keyFunc: keyFunc,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.log = d.log.With().Str("table", d.table).Logger()
	return d, nil
}

var macroPattern = regexp.MustCompile(`{([^}]+)}`)

// expandMacros fills the key templates from the record's own fields, so
// "PRODUCT#{SkuID}" becomes "PRODUCT#SKU0001".
func expandMacros(keys map[string]string, record any) (map[string]string, error) {
	av, err := attributevalue.MarshalMap(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}

	res := make(map[string]string, len(keys))
	for attr, template := range keys {
		expanded := macroPattern.ReplaceAllStringFunc(template, func(macro string) string {
			field := strings.Trim(macro, "{}")
			val, ok := av[attrNameForField(field)]
			if !ok {
				val, ok = av[field]
			}
			if !ok {
				return ""
			}
			switch tv := val.(type) {
			case *types.AttributeValueMemberS:
				return tv.Value
			case *types.AttributeValueMemberN:
				return tv.Value
			case *types.AttributeValueMemberBOOL:
				return fmt.Sprintf("%v", tv.Value)
			default:
				return ""
			}
		})
		res[attr] = expanded
	}
	return res, nil
}

// attrNameForField maps a struct field name in a macro template to the
// attribute name attributevalue marshals it under. The models carry json
// tags, which attributevalue falls back to, so {SkuID} resolves to "sku_id".
func attrNameForField(field string) string {
	var out strings.Builder
	for i := 0; i < len(field); i++ {
		c := field[i]
		if c >= 'A' && c <= 'Z' {
			if i > 0 && !(field[i-1] >= 'A' && field[i-1] <= 'Z') {
				out.WriteByte('_')
			}
			out.WriteByte(c + ('a' - 'A'))
			continue
		}
		out.WriteByte(c)
	}
	return out.String()
}

// expandStringKey substitutes a bare primary key into every macro slot.
func expandStringKey(keys map[string]string, key string) map[string]string {
	expanded := make(map[string]string, len(keys))
	for attr, template := range keys {
		expanded[attr] = macroPattern.ReplaceAllString(template, key)
	}
	return expanded
}

// buildKeyFromExpanded builds the DynamoDB key map, requiring non-empty PK
// and SK values.
func buildKeyFromExpanded(expanded map[string]string) (map[string]types.AttributeValue, error) {
	pk, okPK := expanded["PK"]
	sk, okSK := expanded["SK"]
	if !okPK || !okSK || pk == "" || sk == "" {
		return nil, fmt.Errorf("expanded key templates missing valid PK or SK")
	}
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}, nil
}

// SelectAll scans the full table. Scans return items in hash order, so the
// result is sorted by primary key before it is returned.
func (d *Datastore[T]) SelectAll(ctx context.Context) ([]T, error) {
	var out []T
	var startKey map[string]types.AttributeValue

	for {
		resp, err := d.client.Scan(ctx, &sdk.ScanInput{
			TableName:         &d.table,
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", d.table, err)
		}

		for _, item := range resp.Items {
			var rec T
			if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
				return nil, fmt.Errorf("failed to unmarshal %s item: %w", d.table, err)
			}
			out = append(out, rec)
		}

		if len(resp.LastEvaluatedKey) == 0 {
			break
		}
		startKey = resp.LastEvaluatedKey
	}

	sort.SliceStable(out, func(i, j int) bool {
		return d.keyFunc(out[i]) < d.keyFunc(out[j])
	})
	return out, nil
}

// Insert stores a new record and reads it back so the canonical version
// reflects exactly what the table holds.
func (d *Datastore[T]) Insert(ctx context.Context, record T) (*T, error) {
	av, err := attributevalue.MarshalMap(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}

	expanded, err := expandMacros(d.tm.Keys, record)
	if err != nil {
		return nil, err
	}
	for attr, val := range expanded {
		av[attr] = &types.AttributeValueMemberS{Value: val}
	}

	cond := "attribute_not_exists(PK)"
	_, err = d.client.PutItem(ctx, &sdk.PutItemInput{
		TableName:           &d.table,
		Item:                av,
		ConditionExpression: &cond,
	})
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if stderrors.As(err, &cfe) {
			return nil, errors.NewAlreadyExistsError(d.table, d.keyFunc(record))
		}
		return nil, fmt.Errorf("failed to put %s item: %w", d.table, err)
	}

	return d.getOne(ctx, d.keyFunc(record))
}

// Update applies the changed attributes to the item identified by key and
// returns the item after the write.
func (d *Datastore[T]) Update(ctx context.Context, key string, changes map[string]any) (*T, error) {
	keyMap, err := buildKeyFromExpanded(expandStringKey(d.tm.Keys, key))
	if err != nil {
		return nil, err
	}

	updateExpr, names, values, err := buildUpdateExpression(changes)
	if err != nil {
		return nil, err
	}

	cond := "attribute_exists(PK)"
	out, err := d.client.UpdateItem(ctx, &sdk.UpdateItemInput{
		TableName:                 &d.table,
		Key:                       keyMap,
		UpdateExpression:          &updateExpr,
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ConditionExpression:       &cond,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if stderrors.As(err, &cfe) {
			return nil, errors.NewNotFoundError(d.table, key)
		}
		return nil, fmt.Errorf("failed to update %s item: %w", d.table, err)
	}

	var canonical T
	if err := attributevalue.UnmarshalMap(out.Attributes, &canonical); err != nil {
		return nil, fmt.Errorf("failed to unmarshal updated %s item: %w", d.table, err)
	}
	return &canonical, nil
}

// Delete removes the item identified by key.
func (d *Datastore[T]) Delete(ctx context.Context, key string) error {
	keyMap, err := buildKeyFromExpanded(expandStringKey(d.tm.Keys, key))
	if err != nil {
		return err
	}

	cond := "attribute_exists(PK)"
	_, err = d.client.DeleteItem(ctx, &sdk.DeleteItemInput{
		TableName:           &d.table,
		Key:                 keyMap,
		ConditionExpression: &cond,
	})
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if stderrors.As(err, &cfe) {
			return errors.NewNotFoundError(d.table, key)
		}
		return fmt.Errorf("failed to delete %s item: %w", d.table, err)
	}
	return nil
}

// getOne reads the item identified by key.
func (d *Datastore[T]) getOne(ctx context.Context, key string) (*T, error) {
	keyMap, err := buildKeyFromExpanded(expandStringKey(d.tm.Keys, key))
	if err != nil {
		return nil, err
	}

	out, err := d.client.GetItem(ctx, &sdk.GetItemInput{
		TableName: &d.table,
		Key:       keyMap,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s item: %w", d.table, err)
	}
	if out.Item == nil {
		return nil, errors.NewNotFoundError(d.table, key)
	}

	result := new(T)
	if err := attributevalue.UnmarshalMap(out.Item, result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s item: %w", d.table, err)
	}
	return result, nil
}

// buildUpdateExpression transforms a changes map into an update expression
// with name and value placeholders. Fields are sorted so the expression is
// deterministic.
func buildUpdateExpression(changes map[string]any) (string, map[string]string, map[string]types.AttributeValue, error) {
	if len(changes) == 0 {
		return "", nil, nil, errors.NewValidationError("", "update requires at least one changed attribute")
	}

	fields := make([]string, 0, len(changes))
	for field := range changes {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	setClauses := make([]string, 0, len(fields))
	names := make(map[string]string, len(fields))
	values := make(map[string]types.AttributeValue, len(fields))

	for i, field := range fields {
		namePH := fmt.Sprintf("#f%d", i)
		valuePH := fmt.Sprintf(":v%d", i)

		setClauses = append(setClauses, fmt.Sprintf("%s = %s", namePH, valuePH))
		names[namePH] = field

		av, err := attributevalue.Marshal(changes[field])
		if err != nil {
			return "", nil, nil, fmt.Errorf("failed to marshal value for %q: %w", field, err)
		}
		values[valuePH] = av
	}

	return "SET " + strings.Join(setClauses, ", "), names, values, nil
}

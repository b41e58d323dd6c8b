/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	streamsdk "github.com/aws/aws-sdk-go-v2/service/dynamodbstreams"
	streamtypes "github.com/aws/aws-sdk-go-v2/service/dynamodbstreams/types"

	"github.com/suparena/mfgstore/storagemodels"
)

// Changes polls the table's DynamoDB Stream and delivers decoded change
// events until ctx is cancelled. The table must have a stream enabled with
// NEW_AND_OLD_IMAGES view type.
func (d *Datastore[T]) Changes(ctx context.Context, opts ...storagemodels.SubscribeOption) (<-chan storagemodels.ChangeEvent[T], error) {
	options := storagemodels.DefaultSubscribeOptions()
	for _, opt := range opts {
		opt(&options)
	}

	streamArn, err := d.streamArn(ctx)
	if err != nil {
		return nil, err
	}

	ch := make(chan storagemodels.ChangeEvent[T], options.BufferSize)
	go d.poll(ctx, streamArn, options, ch)
	return ch, nil
}

// streamArn resolves the table's latest stream ARN.
func (d *Datastore[T]) streamArn(ctx context.Context) (string, error) {
	out, err := d.client.DescribeTable(ctx, &sdk.DescribeTableInput{
		TableName: &d.table,
	})
	if err != nil {
		return "", fmt.Errorf("failed to describe table %s: %w", d.table, err)
	}
	if out.Table.LatestStreamArn == nil || *out.Table.LatestStreamArn == "" {
		return "", fmt.Errorf("table %s has no stream enabled", d.table)
	}
	return *out.Table.LatestStreamArn, nil
}

// poll walks the stream's open shards on the configured interval, forwarding
// each record as a change event.
func (d *Datastore[T]) poll(ctx context.Context, streamArn string, options storagemodels.SubscribeOptions, ch chan<- storagemodels.ChangeEvent[T]) {
	defer close(ch)

	iterators := make(map[string]string)
	var seq int64
	retries := 0

	ticker := time.NewTicker(options.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if err := d.refreshShards(ctx, streamArn, iterators); err != nil {
			if ctx.Err() != nil {
				return
			}
			if !d.retryable(err, &retries, options) {
				return
			}
			continue
		}

		for shardID, iterator := range iterators {
			out, err := d.streams.GetRecords(ctx, &streamsdk.GetRecordsInput{
				ShardIterator: &iterator,
			})
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				var expired *streamtypes.ExpiredIteratorException
				if stderrors.As(err, &expired) {
					// Force a fresh iterator on the next pass.
					delete(iterators, shardID)
					continue
				}
				if !d.retryable(err, &retries, options) {
					return
				}
				continue
			}
			retries = 0

			for _, record := range out.Records {
				ev := d.decodeRecord(record)
				ev.Meta = storagemodels.ChangeMeta{
					Seq:       seq,
					Timestamp: time.Now(),
					Source:    "dynamodb",
				}
				seq++

				select {
				case <-ctx.Done():
					return
				case ch <- ev:
				}
			}

			if out.NextShardIterator == nil {
				// Shard closed; a successor appears on the next refresh.
				delete(iterators, shardID)
			} else {
				iterators[shardID] = *out.NextShardIterator
			}
		}
	}
}

// refreshShards opens LATEST iterators for shards not yet tracked.
func (d *Datastore[T]) refreshShards(ctx context.Context, streamArn string, iterators map[string]string) error {
	out, err := d.streams.DescribeStream(ctx, &streamsdk.DescribeStreamInput{
		StreamArn: &streamArn,
	})
	if err != nil {
		return fmt.Errorf("failed to describe stream: %w", err)
	}

	for _, shard := range out.StreamDescription.Shards {
		if shard.ShardId == nil {
			continue
		}
		if _, tracked := iterators[*shard.ShardId]; tracked {
			continue
		}
		// Only shards still open receive new records.
		if shard.SequenceNumberRange != nil && shard.SequenceNumberRange.EndingSequenceNumber != nil {
			continue
		}

		iterOut, err := d.streams.GetShardIterator(ctx, &streamsdk.GetShardIteratorInput{
			StreamArn:         &streamArn,
			ShardId:           shard.ShardId,
			ShardIteratorType: streamtypes.ShardIteratorTypeLatest,
		})
		if err != nil {
			return fmt.Errorf("failed to open shard iterator: %w", err)
		}
		if iterOut.ShardIterator != nil {
			iterators[*shard.ShardId] = *iterOut.ShardIterator
		}
	}
	return nil
}

// retryable applies the retry budget to a transport error, returning false
// when the feed should stop.
func (d *Datastore[T]) retryable(err error, retries *int, options storagemodels.SubscribeOptions) bool {
	if options.ErrorHandler != nil && !options.ErrorHandler(err) {
		d.log.Warn().Err(err).Msg("change feed stopped by error handler")
		return false
	}
	// Throttling-class errors never consume the retry budget.
	if !isRetryableError(err) && *retries >= options.MaxRetries {
		d.log.Error().Err(err).Int("retries", *retries).Msg("change feed giving up")
		return false
	}
	if !isRetryableError(err) {
		*retries++
	}
	d.log.Warn().Err(err).Int("attempt", *retries).Msg("stream poll failed, retrying")
	time.Sleep(options.RetryBackoff * time.Duration(*retries+1))
	return true
}

// decodeRecord converts one stream record into a typed change event.
func (d *Datastore[T]) decodeRecord(record streamtypes.Record) storagemodels.ChangeEvent[T] {
	var ev storagemodels.ChangeEvent[T]

	switch record.EventName {
	case streamtypes.OperationTypeInsert:
		ev.Type = storagemodels.ChangeInsert
	case streamtypes.OperationTypeModify:
		ev.Type = storagemodels.ChangeUpdate
	case streamtypes.OperationTypeRemove:
		ev.Type = storagemodels.ChangeDelete
	default:
		ev.Err = fmt.Errorf("unknown stream event %q", record.EventName)
		return ev
	}

	if record.Dynamodb == nil {
		ev.Err = fmt.Errorf("stream record carries no payload")
		return ev
	}

	switch ev.Type {
	case storagemodels.ChangeInsert, storagemodels.ChangeUpdate:
		rec, err := unmarshalImage[T](record.Dynamodb.NewImage)
		if err != nil {
			ev.Err = err
			return ev
		}
		ev.New = rec

	case storagemodels.ChangeDelete:
		if len(record.Dynamodb.OldImage) > 0 {
			rec, err := unmarshalImage[T](record.Dynamodb.OldImage)
			if err != nil {
				ev.Err = err
				return ev
			}
			ev.Old = rec
			ev.Key = d.keyFunc(*rec)
		}
		if ev.Key == "" {
			ev.Key = keyFromStreamKeys(record.Dynamodb.Keys)
		}
		if ev.Key == "" {
			ev.Err = fmt.Errorf("remove record carries no identifiable key")
		}
	}
	return ev
}

// unmarshalImage converts a stream image into T. The streams API ships its
// own AttributeValue types, so each attribute is converted to the base
// DynamoDB representation first.
func unmarshalImage[T any](image map[string]streamtypes.AttributeValue) (*T, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("stream record carries no image")
	}

	converted := make(map[string]types.AttributeValue, len(image))
	for name, av := range image {
		base, err := convertAttribute(av)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		converted[name] = base
	}

	result := new(T)
	if err := attributevalue.UnmarshalMap(converted, result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stream image: %w", err)
	}
	return result, nil
}

// convertAttribute maps a streams AttributeValue onto the base DynamoDB type.
func convertAttribute(av streamtypes.AttributeValue) (types.AttributeValue, error) {
	switch tv := av.(type) {
	case *streamtypes.AttributeValueMemberS:
		return &types.AttributeValueMemberS{Value: tv.Value}, nil
	case *streamtypes.AttributeValueMemberN:
		return &types.AttributeValueMemberN{Value: tv.Value}, nil
	case *streamtypes.AttributeValueMemberBOOL:
		return &types.AttributeValueMemberBOOL{Value: tv.Value}, nil
	case *streamtypes.AttributeValueMemberNULL:
		return &types.AttributeValueMemberNULL{Value: tv.Value}, nil
	case *streamtypes.AttributeValueMemberB:
		return &types.AttributeValueMemberB{Value: tv.Value}, nil
	case *streamtypes.AttributeValueMemberSS:
		return &types.AttributeValueMemberSS{Value: tv.Value}, nil
	case *streamtypes.AttributeValueMemberNS:
		return &types.AttributeValueMemberNS{Value: tv.Value}, nil
	case *streamtypes.AttributeValueMemberBS:
		return &types.AttributeValueMemberBS{Value: tv.Value}, nil
	case *streamtypes.AttributeValueMemberL:
		list := make([]types.AttributeValue, 0, len(tv.Value))
		for _, item := range tv.Value {
			conv, err := convertAttribute(item)
			if err != nil {
				return nil, err
			}
			list = append(list, conv)
		}
		return &types.AttributeValueMemberL{Value: list}, nil
	case *streamtypes.AttributeValueMemberM:
		m := make(map[string]types.AttributeValue, len(tv.Value))
		for k, item := range tv.Value {
			conv, err := convertAttribute(item)
			if err != nil {
				return nil, err
			}
			m[k] = conv
		}
		return &types.AttributeValueMemberM{Value: m}, nil
	default:
		return nil, fmt.Errorf("unsupported attribute value type %T", av)
	}
}

// keyFromStreamKeys recovers the primary key from the record's key
// attributes, stripping the entity prefix from the partition key (e.g.
// "PRODUCT#SKU0001" yields "SKU0001").
func keyFromStreamKeys(keys map[string]streamtypes.AttributeValue) string {
	pk, ok := keys["PK"]
	if !ok {
		return ""
	}
	s, ok := pk.(*streamtypes.AttributeValueMemberS)
	if !ok {
		return ""
	}
	if i := strings.LastIndex(s.Value, "#"); i >= 0 {
		return s.Value[i+1:]
	}
	return s.Value
}

// isRetryableError determines whether a DynamoDB error is worth retrying.
func isRetryableError(err error) bool {
	var throughput *types.ProvisionedThroughputExceededException
	if stderrors.As(err, &throughput) {
		return true
	}
	var limit *types.RequestLimitExceeded
	if stderrors.As(err, &limit) {
		return true
	}
	var internal *types.InternalServerError
	if stderrors.As(err, &internal) {
		return true
	}
	var retryable interface{ IsRetryable() bool }
	if stderrors.As(err, &retryable) {
		return retryable.IsRetryable()
	}
	return false
}

package stacks

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudwatch"
	"github.com/aws/aws-cdk-go/awscdk/v2/awskms"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssqs"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"

	"github.com/fernbrook/aws-cdk-infra/pkg/config"
	"github.com/fernbrook/aws-cdk-infra/pkg/params"
)

type SqsStackProps struct {
	awscdk.StackProps
	Publisher *params.Publisher
}

// SqsOutputs exposes the queues the access-control stack grants access to.
type SqsOutputs struct {
	MainQueue         awssqs.Queue
	HighPriorityQueue awssqs.Queue
	FifoQueue         awssqs.Queue
	BatchQueue        awssqs.Queue
	DeadLetterQueue   awssqs.Queue
	KmsKey            awskms.Key
}

// NewSqsStack declares the application queues, their shared dead-letter queue
// and the DLQ alarms.
func NewSqsStack(scope constructs.Construct, id string, props *SqsStackProps, cfg config.EnvironmentConfig) (awscdk.Stack, *SqsOutputs, error) {
	if props == nil || props.Publisher == nil {
		return nil, nil, &MissingDependencyError{Stack: StackSqs, Dependency: "parameter publisher"}
	}
	stack := awscdk.NewStack(scope, &id, &props.StackProps)

	kmsKey := awskms.NewKey(stack, jsii.String("SqsKmsKey"), &awskms.KeyProps{
		Description:       jsii.String(fmt.Sprintf("KMS key for SQS encryption in %s environment", cfg.Name)),
		EnableKeyRotation: jsii.Bool(true),
	})
	awscdk.Tags_Of(kmsKey).Add(jsii.String("Purpose"), jsii.String("SqsEncryption"), nil)

	outputs := &SqsOutputs{KmsKey: kmsKey}

	outputs.DeadLetterQueue = awssqs.NewQueue(stack, jsii.String("DeadLetterQueue"), &awssqs.QueueProps{
		QueueName:           jsii.String(cfg.ResourceName("dlq")),
		Encryption:          awssqs.QueueEncryption_KMS,
		EncryptionMasterKey: kmsKey,
		RetentionPeriod:     awscdk.Duration_Days(jsii.Number(14)),
		VisibilityTimeout:   awscdk.Duration_Seconds(jsii.Number(float64(config.DefaultVisibilitySeconds))),
	})

	deadLetter := &awssqs.DeadLetterQueue{
		MaxReceiveCount: jsii.Number(float64(cfg.Queues.MaxReceiveCount)),
		Queue:           outputs.DeadLetterQueue,
	}

	outputs.MainQueue = awssqs.NewQueue(stack, jsii.String("MainQueue"), &awssqs.QueueProps{
		QueueName:           jsii.String(cfg.ResourceName("main-queue")),
		Encryption:          awssqs.QueueEncryption_KMS,
		EncryptionMasterKey: kmsKey,
		VisibilityTimeout:   awscdk.Duration_Seconds(jsii.Number(float64(cfg.Queues.VisibilityTimeoutSeconds))),
		RetentionPeriod:     awscdk.Duration_Seconds(jsii.Number(float64(cfg.Queues.MessageRetentionSeconds))),
		DeadLetterQueue:     deadLetter,
	})

	outputs.HighPriorityQueue = awssqs.NewQueue(stack, jsii.String("HighPriorityQueue"), &awssqs.QueueProps{
		QueueName:           jsii.String(cfg.ResourceName("high-priority-queue")),
		Encryption:          awssqs.QueueEncryption_KMS,
		EncryptionMasterKey: kmsKey,
		VisibilityTimeout:   awscdk.Duration_Seconds(jsii.Number(float64(cfg.Queues.VisibilityTimeoutSeconds))),
		RetentionPeriod:     awscdk.Duration_Seconds(jsii.Number(float64(cfg.Queues.MessageRetentionSeconds))),
		DeadLetterQueue:     deadLetter,
	})

	outputs.FifoQueue = awssqs.NewQueue(stack, jsii.String("FifoQueue"), &awssqs.QueueProps{
		QueueName:                 jsii.String(cfg.ResourceName("fifo-queue") + ".fifo"),
		Encryption:                awssqs.QueueEncryption_KMS,
		EncryptionMasterKey:       kmsKey,
		Fifo:                      jsii.Bool(true),
		ContentBasedDeduplication: jsii.Bool(true),
		VisibilityTimeout:         awscdk.Duration_Seconds(jsii.Number(float64(cfg.Queues.VisibilityTimeoutSeconds))),
		RetentionPeriod:           awscdk.Duration_Seconds(jsii.Number(float64(cfg.Queues.MessageRetentionSeconds))),
		DeadLetterQueue:           deadLetter,
	})

	outputs.BatchQueue = awssqs.NewQueue(stack, jsii.String("BatchQueue"), &awssqs.QueueProps{
		QueueName:           jsii.String(cfg.ResourceName("batch-queue")),
		Encryption:          awssqs.QueueEncryption_KMS,
		EncryptionMasterKey: kmsKey,
		VisibilityTimeout:   awscdk.Duration_Seconds(jsii.Number(float64(config.BatchQueueVisibilitySeconds))),
		RetentionPeriod:     awscdk.Duration_Seconds(jsii.Number(float64(cfg.Queues.MessageRetentionSeconds))),
		DeadLetterQueue:     deadLetter,
	})

	dlqAlarm := awscloudwatch.NewAlarm(stack, jsii.String("DlqMessagesAlarm"), &awscloudwatch.AlarmProps{
		Metric:            outputs.DeadLetterQueue.MetricApproximateNumberOfMessagesVisible(nil),
		Threshold:         jsii.Number(1),
		EvaluationPeriods: jsii.Number(1),
		AlarmDescription:  jsii.String("Alarm when messages are sent to Dead Letter Queue"),
		AlarmName:         jsii.String(cfg.ResourceName("dlq-alarm")),
	})

	dlqAgeAlarm := awscloudwatch.NewAlarm(stack, jsii.String("DlqAgeAlarm"), &awscloudwatch.AlarmProps{
		Metric:            outputs.DeadLetterQueue.MetricApproximateAgeOfOldestMessage(nil),
		Threshold:         jsii.Number(float64(config.DLQAgeThresholdSeconds)),
		EvaluationPeriods: jsii.Number(float64(config.DLQEvaluationPeriods)),
		AlarmDescription:  jsii.String("Alarm when messages are stuck in DLQ for too long"),
		AlarmName:         jsii.String(cfg.ResourceName("dlq-age-alarm")),
	})

	applyTags(stack, cfg)

	collector := newOutputCollector()
	collector.set("main-queue-url", *outputs.MainQueue.QueueUrl())
	collector.set("high-priority-queue-url", *outputs.HighPriorityQueue.QueueUrl())
	collector.set("fifo-queue-url", *outputs.FifoQueue.QueueUrl())
	collector.set("batch-queue-url", *outputs.BatchQueue.QueueUrl())
	collector.set("dlq-url", *outputs.DeadLetterQueue.QueueUrl())
	collector.set("main-queue-arn", *outputs.MainQueue.QueueArn())
	collector.set("high-priority-queue-arn", *outputs.HighPriorityQueue.QueueArn())
	collector.set("fifo-queue-arn", *outputs.FifoQueue.QueueArn())
	collector.set("batch-queue-arn", *outputs.BatchQueue.QueueArn())
	collector.set("dlq-arn", *outputs.DeadLetterQueue.QueueArn())
	collector.set("kms-key-arn", *kmsKey.KeyArn())
	collector.set("dlq-alarm-arn", *dlqAlarm.AlarmArn())
	collector.set("dlq-age-alarm-arn", *dlqAgeAlarm.AlarmArn())
	if err := collector.publish(stack, props.Publisher, StackSqs); err != nil {
		return nil, nil, err
	}

	return stack, outputs, nil
}

package registry

// Canonical resource group tags.
const (
	TagInstance         = "aws_instance"
	TagAutoscalingGroup = "aws_autoscaling_group"
	TagSecurityGroup    = "aws_security_group"
	TagALB              = "aws_alb"
	TagELB              = "aws_elb"
	TagS3Bucket         = "aws_s3_bucket"
	TagIAMUser          = "aws_iam_user"
	TagIAMRole          = "aws_iam_role"
	TagDBInstance       = "aws_db_instance"
	TagLambdaFunction   = "aws_lambda_function"
	TagDynamoDBTable    = "aws_dynamodb_table"
	TagSQSQueue         = "aws_sqs_queue"
	TagECRRepository    = "aws_ecr_repository"
	TagECSCluster       = "aws_ecs_cluster"
	TagEKSCluster       = "aws_eks_cluster"
	TagKMSKey           = "aws_kms_key"
	TagRoute53Zone      = "aws_route53_zone"
	TagLogGroup         = "aws_cloudwatch_log_group"
	TagCloudTrail       = "aws_cloudtrail"
	TagRedshiftCluster  = "aws_redshift_cluster"
	TagMemoryDBCluster  = "aws_memorydb_cluster"
)

var builtins = []struct {
	group string
	field string
	tag   string
}{
	{"aws_instance", "id", TagInstance},
	{"aws_spot_instance_request", "spot_instance_id", TagInstance},
	{"aws_autoscaling_group", "name", TagAutoscalingGroup},
	{"aws_security_group", "id", TagSecurityGroup},
	{"aws_lb", "name", TagALB},
	{"aws_alb", "name", TagALB},
	{"aws_elb", "name", TagELB},
	{"aws_s3_bucket", "id", TagS3Bucket},
	{"aws_iam_user", "id", TagIAMUser},
	{"aws_iam_role", "id", TagIAMRole},
	{"aws_db_instance", "identifier", TagDBInstance},
	{"aws_lambda_function", "function_name", TagLambdaFunction},
	{"aws_dynamodb_table", "name", TagDynamoDBTable},
	{"aws_sqs_queue", "id", TagSQSQueue},
	{"aws_ecr_repository", "name", TagECRRepository},
	{"aws_ecs_cluster", "name", TagECSCluster},
	{"aws_eks_cluster", "name", TagEKSCluster},
	{"aws_kms_key", "key_id", TagKMSKey},
	{"aws_route53_zone", "zone_id", TagRoute53Zone},
	{"aws_cloudwatch_log_group", "name", TagLogGroup},
	{"aws_cloudtrail", "name", TagCloudTrail},
	{"aws_redshift_cluster", "cluster_identifier", TagRedshiftCluster},
	{"aws_memorydb_cluster", "name", TagMemoryDBCluster},
}

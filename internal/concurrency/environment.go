package concurrency

import (
	"os"
	"runtime"
	"strconv"
)

// RuntimeEnvironment represents the deployment environment
type RuntimeEnvironment string

const (
	EnvironmentLambda RuntimeEnvironment = "lambda"
	EnvironmentECS    RuntimeEnvironment = "ecs"
	EnvironmentLocal  RuntimeEnvironment = "local"
)

// DetectEnvironment inspects well-known variables set by the AWS runtimes.
func DetectEnvironment() RuntimeEnvironment {
	if _, ok := os.LookupEnv("AWS_LAMBDA_FUNCTION_NAME"); ok {
		return EnvironmentLambda
	}
	if _, ok := os.LookupEnv("ECS_CONTAINER_METADATA_URI"); ok {
		return EnvironmentECS
	}
	if _, ok := os.LookupEnv("ECS_CONTAINER_METADATA_URI_V4"); ok {
		return EnvironmentECS
	}
	return EnvironmentLocal
}

// GetLambdaMemoryMB returns the configured memory for the Lambda function
func GetLambdaMemoryMB() int {
	mem, err := strconv.Atoi(os.Getenv("AWS_LAMBDA_FUNCTION_MEMORY_SIZE"))
	if err != nil || mem <= 0 {
		return 512
	}
	return mem
}

// GetOptimalWorkerCount sizes the pool for CPU-bound scoring work.
func GetOptimalWorkerCount(env RuntimeEnvironment) int {
	switch env {
	case EnvironmentLambda:
		// Lambda gets one full vCPU at ~1769 MB.
		memoryMB := GetLambdaMemoryMB()
		switch {
		case memoryMB < 1024:
			return 1
		case memoryMB < 1769:
			return 2
		case memoryMB < 3008:
			return 3
		}
		return 6

	case EnvironmentECS:
		workers := runtime.NumCPU()
		if workers > 16 {
			return 16
		}
		return workers

	default:
		workers := runtime.NumCPU()
		if workers < 2 {
			return 2
		}
		if workers > 8 {
			return 8
		}
		return workers
	}
}

package modem

// Convert []int32 to []float64
func Int32ToFloat64(input []int32) []float64 {
	output := make([]float64, len(input))
	for i, v := range input {
		output[i] = float64(v) / 0x7fffffff
	}
	return output
}

// Convert []int32 to []float32
func Int32ToFloat32(input []int32) []float32 {
	output := make([]float32, len(input))
	for i, v := range input {
		output[i] = float32(float64(v) / 0x7fffffff)
	}
	return output
}

// Convert []float64 to []int32, clipping to [-1, 1]
func Float64ToInt32(input []float64) []int32 {
	output := make([]int32, len(input))
	for i, v := range input {
		output[i] = int32(clip(v) * 0x7fffffff)
	}
	return output
}

func Float64ToFloat32(input []float64) []float32 {
	output := make([]float32, len(input))
	for i, v := range input {
		output[i] = float32(v)
	}
	return output
}

func Float32ToFloat64(input []float32) []float64 {
	output := make([]float64, len(input))
	for i, v := range input {
		output[i] = float64(v)
	}
	return output
}

func clip(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

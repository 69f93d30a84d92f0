package util

// ContainsUint64 判断切片中是否存在目标元素
func ContainsUint64(list []uint64, target uint64) bool {
	for _, v := range list {
		if v == target {
			return true
		}
	}
	return false
}

// RemoveUint64 返回剔除目标元素后的新切片
func RemoveUint64(list []uint64, target uint64) []uint64 {
	out := make([]uint64, 0, len(list))
	for _, v := range list {
		if v != target {
			out = append(out, v)
		}
	}
	return out
}

// PtrInt64 用于将 int64 转换为 *int64
func PtrInt64(i int64) *int64 {
	return &i
}

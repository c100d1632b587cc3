package models

import "gorm.io/gorm"

type Object struct {
	gorm.Model

	Bucket      string `gorm:"column:bucket;uniqueIndex:idx_object_bucket_path"` // 存储桶
	Path        string `gorm:"column:path;uniqueIndex:idx_object_bucket_path"`   // 桶内路径，形如 folder/name-suffix.ext
	ContentType string `gorm:"column:content_type"`                              // 上传时检测到的 MIME 类型
	Size        int64  `gorm:"column:size"`                                      // 原始大小（加密前）
	Content     []byte `gorm:"column:content;type:bytea"`                        // 文件内容（AES-GCM 加密后）
}

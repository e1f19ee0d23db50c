package models

// NewComment 发表评论请求。ParentID 必须是目标节点的数字 ID（帖子或评论）
type NewComment struct {
	ParentID int64  `json:"parentId" validate:"required,gt=0"`
	Message  string `json:"message" validate:"required,max=5000"`
}

// Created is the minimal body returned by create endpoints.
type Created struct {
	ID int64 `json:"id"`
}

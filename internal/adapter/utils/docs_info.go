package utils

// local dependencies
//	redis:    docker run -p 6379:6379 -d redis
//	qdrant:   docker run -p 6333:6333 -p 6334:6334 -v vectorDBData:/qdrant/storage qdrant/qdrant
//	pgvector: docker run -p 5432:5432 -e POSTGRES_PASSWORD=docqa -d pgvector/pgvector:pg16
//
// VECTOR_BACKEND picks memory, qdrant or pgvector; memory needs neither container.

//swagger init
//swag init -g cmd/api/main.go --parseDependency --parseInternal --dir ./ --output ./cmd/api/docs
